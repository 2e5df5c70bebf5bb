// Package database defines the CoinStore collaborator contract the
// utxo package's Cache flushes into, and the error taxonomy
// (ErrNotFound vs ErrIO) that lets utxo.ErrorCatchingView distinguish a
// genuine miss from a store fault.
package database

import "github.com/LarryRuane/bitcoin/domain/consensus/model/externalapi"

// CoinStore is the durable backing store a Coin View/Coin Cache stack
// ultimately flushes into. Shape from spec.md §6; a concrete
// goleveldb-backed implementation lives in database/ldb.
type CoinStore interface {
	// GetCoin returns the coin at outpoint, or (zero, false, nil) if it
	// isn't present. A non-nil error always means ErrIO: the store
	// couldn't determine presence, as opposed to determining absence.
	GetCoin(outpoint externalapi.DomainOutpoint) (coin Coin, ok bool, err error)

	// HaveCoin reports presence without fetching the full coin.
	HaveCoin(outpoint externalapi.DomainOutpoint) (bool, error)

	// GetBestBlock returns the tip hash this store's contents are
	// consistent as of.
	GetBestBlock() (externalapi.DomainHash, error)

	// BatchWrite atomically applies every dirty entry in batch and
	// advances the stored best-block hash.
	BatchWrite(batch map[externalapi.DomainOutpoint]BatchEntry, bestBlock externalapi.DomainHash) error

	// EstimateSize reports the approximate on-disk size of the store, in
	// bytes, used only for operational reporting.
	EstimateSize() (uint64, error)

	// Cursor returns an iterator over every coin in the store.
	Cursor() (Cursor, error)
}

// BatchEntry is the minimal shape CoinStore.BatchWrite needs out of a
// utxo.CacheEntry: the coin and whether it's a deletion. Kept separate
// from utxo.CacheEntry so this package doesn't need to import utxo (the
// dependency runs the other way: utxo.Cache writes through this
// interface to reach its backing store).
type BatchEntry struct {
	Coin   Coin
	Delete bool
}

// Coin is the durable-store's view of a coin: same fields as
// utxo.Coin minus the in-memory-only spent sentinel, which BatchEntry's
// Delete flag expresses instead.
type Coin struct {
	Amount          uint64
	ScriptPublicKey []byte
	BlockHeight     uint32
	IsCoinbase      bool
}

// Cursor iterates every (outpoint, coin) pair a CoinStore holds.
type Cursor interface {
	Next() bool
	Outpoint() externalapi.DomainOutpoint
	Coin() Coin
	Close() error
}
