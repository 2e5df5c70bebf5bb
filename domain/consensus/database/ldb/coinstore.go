package ldb

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/LarryRuane/bitcoin/domain/consensus/database"
	"github.com/LarryRuane/bitcoin/domain/consensus/model/externalapi"
)

// coinKeyPrefix/bestBlockKey pick apart the single leveldb keyspace into
// the coin set and the tip-hash record. The layout is internal: nothing
// outside this package ever parses a key.
var (
	coinKeyPrefix = []byte("c")
	bestBlockKey  = []byte("B")
)

func coinKey(outpoint externalapi.DomainOutpoint) []byte {
	key := make([]byte, 0, len(coinKeyPrefix)+externalapi.DomainHashSize+4)
	key = append(key, coinKeyPrefix...)
	key = append(key, outpoint.TransactionID[:]...)
	key = binary.BigEndian.AppendUint32(key, outpoint.Index)
	return key
}

func serializeCoin(coin database.Coin) []byte {
	buf := make([]byte, 0, 8+4+1+len(coin.ScriptPublicKey))
	buf = binary.LittleEndian.AppendUint64(buf, coin.Amount)
	buf = binary.LittleEndian.AppendUint32(buf, coin.BlockHeight)
	if coin.IsCoinbase {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, coin.ScriptPublicKey...)
	return buf
}

func deserializeCoin(data []byte) (database.Coin, error) {
	if len(data) < 13 {
		return database.Coin{}, errors.Errorf("coin record too short: %d bytes", len(data))
	}
	coin := database.Coin{
		Amount:      binary.LittleEndian.Uint64(data[0:8]),
		BlockHeight: binary.LittleEndian.Uint32(data[8:12]),
		IsCoinbase:  data[12] != 0,
	}
	if len(data) > 13 {
		coin.ScriptPublicKey = append([]byte(nil), data[13:]...)
	}
	return coin, nil
}

// CoinStore adapts LevelDB to the database.CoinStore contract.
// Grounded on database2/ffldb/ldb/leveldb.go's LevelDB wrapper; this is
// the concrete backing engine the supplement in SPEC_FULL.md §4.B calls
// for.
type CoinStore struct {
	db *LevelDB
}

// NewCoinStore opens (or creates) a leveldb-backed CoinStore at path.
func NewCoinStore(path string) (*CoinStore, error) {
	db, err := NewLevelDB(path)
	if err != nil {
		return nil, err
	}
	return &CoinStore{db: db}, nil
}

// Close closes the underlying leveldb handle.
func (s *CoinStore) Close() error {
	return s.db.Close()
}

func wrapIOError(op string, err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(database.ErrIO, "%s: %s", op, err)
}

// GetCoin implements database.CoinStore.
func (s *CoinStore) GetCoin(outpoint externalapi.DomainOutpoint) (database.Coin, bool, error) {
	data, err := s.db.Get(coinKey(outpoint))
	if err != nil {
		return database.Coin{}, false, wrapIOError("GetCoin", err)
	}
	if data == nil {
		return database.Coin{}, false, nil
	}
	coin, err := deserializeCoin(data)
	if err != nil {
		return database.Coin{}, false, wrapIOError("GetCoin", err)
	}
	return coin, true, nil
}

// HaveCoin implements database.CoinStore.
func (s *CoinStore) HaveCoin(outpoint externalapi.DomainOutpoint) (bool, error) {
	ok, err := s.db.Has(coinKey(outpoint))
	if err != nil {
		return false, wrapIOError("HaveCoin", err)
	}
	return ok, nil
}

// GetBestBlock implements database.CoinStore.
func (s *CoinStore) GetBestBlock() (externalapi.DomainHash, error) {
	data, err := s.db.Get(bestBlockKey)
	if err != nil {
		return externalapi.DomainHash{}, wrapIOError("GetBestBlock", err)
	}
	if data == nil {
		return externalapi.DomainHash{}, nil
	}
	hash, err := externalapi.NewDomainHashFromSlice(data)
	if err != nil {
		return externalapi.DomainHash{}, wrapIOError("GetBestBlock", err)
	}
	return *hash, nil
}

// BatchWrite implements database.CoinStore. The coin writes and the
// best-block pointer update go into a single LevelDB.WriteBatch so a
// crash mid-flush can never leave one committed without the other —
// spec.md §4.D's flush is defined as moving FLUSH-tagged entries and
// the tip hash together.
func (s *CoinStore) BatchWrite(batch map[externalapi.DomainOutpoint]database.BatchEntry, bestBlock externalapi.DomainHash) error {
	ops := make([]BatchOp, 0, len(batch)+1)
	for outpoint, entry := range batch {
		if entry.Delete {
			ops = append(ops, BatchOp{Key: coinKey(outpoint), Delete: true})
			continue
		}
		ops = append(ops, BatchOp{Key: coinKey(outpoint), Value: serializeCoin(entry.Coin)})
	}
	ops = append(ops, BatchOp{Key: bestBlockKey, Value: bestBlock[:]})
	if err := s.db.WriteBatch(ops); err != nil {
		return wrapIOError("BatchWrite", err)
	}
	return nil
}

// EstimateSize implements database.CoinStore by summing the key and value
// sizes of every coin record; goleveldb doesn't expose a cheap on-disk
// byte count through the Put/Get/Has surface this package wraps.
func (s *CoinStore) EstimateSize() (uint64, error) {
	cursor, err := s.Cursor()
	if err != nil {
		return 0, err
	}
	defer cursor.Close()
	var total uint64
	for cursor.Next() {
		coin := cursor.Coin()
		total += externalapi.DomainHashSize + 4 + 13 + uint64(len(coin.ScriptPublicKey))
	}
	return total, nil
}

// Cursor implements database.CoinStore.
func (s *CoinStore) Cursor() (database.Cursor, error) {
	return &coinCursor{iter: s.db.NewIteratorWithPrefix(coinKeyPrefix)}, nil
}

type coinCursor struct {
	iter interface {
		Next() bool
		Key() []byte
		Value() []byte
		Release()
		Error() error
	}
}

func (c *coinCursor) Next() bool { return c.iter.Next() }

func (c *coinCursor) Outpoint() externalapi.DomainOutpoint {
	key := c.iter.Key()
	var outpoint externalapi.DomainOutpoint
	copy(outpoint.TransactionID[:], key[len(coinKeyPrefix):len(coinKeyPrefix)+externalapi.DomainHashSize])
	outpoint.Index = binary.BigEndian.Uint32(key[len(coinKeyPrefix)+externalapi.DomainHashSize:])
	return outpoint
}

func (c *coinCursor) Coin() database.Coin {
	coin, err := deserializeCoin(c.iter.Value())
	if err != nil {
		// A corrupt record surfaces here rather than through an error
		// return: database.Cursor's Coin() has no error channel, matching
		// the interface spec.md §6 describes. Next()/Error() still catch
		// genuine leveldb-level faults.
		return database.Coin{}
	}
	return coin
}

func (c *coinCursor) Close() error {
	c.iter.Release()
	return c.iter.Error()
}
