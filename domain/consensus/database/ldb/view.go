package ldb

import (
	"github.com/LarryRuane/bitcoin/domain/consensus/database"
	"github.com/LarryRuane/bitcoin/domain/consensus/model/externalapi"
	"github.com/LarryRuane/bitcoin/domain/consensus/utxo"
)

// View adapts a database.CoinStore to utxo.View, so a Cache stack can
// sit directly on top of it. It's the base of the stack: BatchWrite here
// is the point where a flushed writeset actually leaves memory.
//
// Grounded on CCoinsViewDB in coins.cpp, and on the teacher's general
// pattern of a thin adapter between a generic store and a domain-typed
// view (database2/ffldb/leveldb/leveldb.go wraps its inner engine the
// same way).
type View struct {
	utxo.BaseView
	store database.CoinStore
}

// NewView wraps store as a utxo.View.
func NewView(store database.CoinStore) *View {
	return &View{store: store}
}

// GetChecked implements the checkedGetter interface utxo.ErrorCatchingView
// looks for, distinguishing a genuine miss from a database.ErrIO fault.
func (v *View) GetChecked(outpoint externalapi.DomainOutpoint) (utxo.Coin, bool, error) {
	coin, ok, err := v.store.GetCoin(outpoint)
	if err != nil {
		return utxo.Coin{}, false, err
	}
	if !ok {
		return utxo.Coin{}, false, nil
	}
	return toUTXOCoin(coin), true, nil
}

// Get implements utxo.View. A store fault is treated as a miss here;
// callers that need the distinction wrap this View in a
// utxo.ErrorCatchingView, which calls GetChecked instead.
func (v *View) Get(outpoint externalapi.DomainOutpoint) (utxo.Coin, bool) {
	coin, ok, err := v.GetChecked(outpoint)
	if err != nil {
		return utxo.Coin{}, false
	}
	return coin, ok
}

// Have implements utxo.View.
func (v *View) Have(outpoint externalapi.DomainOutpoint) bool {
	ok, err := v.store.HaveCoin(outpoint)
	return err == nil && ok
}

// BestBlock implements utxo.View.
func (v *View) BestBlock() externalapi.DomainHash {
	hash, err := v.store.GetBestBlock()
	if err != nil {
		return externalapi.DomainHash{}
	}
	return hash
}

// Cursor implements utxo.View.
func (v *View) Cursor() (utxo.Cursor, bool) {
	cursor, err := v.store.Cursor()
	if err != nil {
		return nil, false
	}
	return &viewCursor{cursor: cursor}, true
}

// BatchWrite implements utxo.View, translating the cache's writeset into
// the store's BatchEntry shape and persisting it immediately: this is
// the bottom of the stack, there's no further parent to defer to.
func (v *View) BatchWrite(incoming map[externalapi.DomainOutpoint]*utxo.CacheEntry, bestBlock externalapi.DomainHash, erase, partial bool) error {
	_ = partial
	batch := make(map[externalapi.DomainOutpoint]database.BatchEntry, len(incoming))
	for outpoint, entry := range incoming {
		if erase {
			delete(incoming, outpoint)
		}
		if entry.Coin.IsSpent() {
			batch[outpoint] = database.BatchEntry{Delete: true}
			continue
		}
		batch[outpoint] = database.BatchEntry{Coin: fromUTXOCoin(entry.Coin)}
	}
	return v.store.BatchWrite(batch, bestBlock)
}

func toUTXOCoin(coin database.Coin) utxo.Coin {
	return utxo.NewCoin(coin.Amount, coin.ScriptPublicKey, coin.BlockHeight, coin.IsCoinbase)
}

func fromUTXOCoin(coin utxo.Coin) database.Coin {
	return database.Coin{
		Amount:          coin.Amount,
		ScriptPublicKey: coin.ScriptPublicKey,
		BlockHeight:     coin.BlockHeight,
		IsCoinbase:      coin.IsCoinbase,
	}
}

type viewCursor struct {
	cursor database.Cursor
}

func (c *viewCursor) Next() bool                             { return c.cursor.Next() }
func (c *viewCursor) Outpoint() externalapi.DomainOutpoint   { return c.cursor.Outpoint() }
func (c *viewCursor) Coin() utxo.Coin                        { return toUTXOCoin(c.cursor.Coin()) }
func (c *viewCursor) Close()                                 { c.cursor.Close() }
