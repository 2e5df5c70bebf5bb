package utxo

import (
	"github.com/LarryRuane/bitcoin/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

// Cursor lets a caller iterate every entry a View exposes. Its shape
// intentionally mirrors the CoinStore collaborator's Cursor (spec.md §6):
// a view that sits directly on the backing store hands the store's cursor
// straight through.
type Cursor interface {
	Next() bool
	Outpoint() externalapi.DomainOutpoint
	Coin() Coin
	Close()
}

// View is a uniform read interface over any layer of the cache stack, or
// over the backing CoinStore itself. Grounded on CCoinsView in
// coins.cpp/coins.h: the "empty" defaults below (Get miss, BestBlock the
// zero hash, BatchWrite failing) are exactly CCoinsView's base-class
// behavior, reused by any type that embeds BaseView.
type View interface {
	Get(outpoint externalapi.DomainOutpoint) (Coin, bool)
	Have(outpoint externalapi.DomainOutpoint) bool
	BestBlock() externalapi.DomainHash
	HeadBlocks() []externalapi.DomainHash
	Cursor() (Cursor, bool)
	// BatchWrite folds incoming into this view. If erase is true, the
	// caller may no longer rely on incoming's contents after the call
	// (entries may have been moved out of it). If partial is true, the
	// view may choose to persist only the FLUSH-tagged subset of
	// incoming and report success regardless.
	BatchWrite(incoming map[externalapi.DomainOutpoint]*CacheEntry, bestBlock externalapi.DomainHash, erase, partial bool) error
}

// BaseView implements View with CCoinsView's "empty" defaults. Embed it to
// get those defaults for free and override only what a concrete view
// actually provides.
type BaseView struct{}

func (BaseView) Get(externalapi.DomainOutpoint) (Coin, bool)   { return Coin{}, false }
func (BaseView) Have(externalapi.DomainOutpoint) bool          { return false }
func (BaseView) BestBlock() externalapi.DomainHash              { return externalapi.DomainHash{} }
func (BaseView) HeadBlocks() []externalapi.DomainHash          { return nil }
func (BaseView) Cursor() (Cursor, bool)                        { return nil, false }
func (BaseView) BatchWrite(map[externalapi.DomainOutpoint]*CacheEntry, externalapi.DomainHash, bool, bool) error {
	return errBatchWriteNotSupported
}

var errBatchWriteNotSupported = errors.New("utxo: this view does not support writes")

// BackedView forwards every operation to a mutable inner View, which can
// be hot-swapped at runtime via SetBackend. Grounded on CCoinsViewBacked
// in coins.cpp.
type BackedView struct {
	base View
}

// NewBackedView wraps base.
func NewBackedView(base View) *BackedView {
	return &BackedView{base: base}
}

// SetBackend hot-swaps the view this BackedView forwards to.
func (v *BackedView) SetBackend(base View) {
	v.base = base
}

func (v *BackedView) Get(outpoint externalapi.DomainOutpoint) (Coin, bool) { return v.base.Get(outpoint) }
func (v *BackedView) Have(outpoint externalapi.DomainOutpoint) bool        { return v.base.Have(outpoint) }
func (v *BackedView) BestBlock() externalapi.DomainHash                   { return v.base.BestBlock() }
func (v *BackedView) HeadBlocks() []externalapi.DomainHash                { return v.base.HeadBlocks() }
func (v *BackedView) Cursor() (Cursor, bool)                              { return v.base.Cursor() }
func (v *BackedView) BatchWrite(incoming map[externalapi.DomainOutpoint]*CacheEntry, bestBlock externalapi.DomainHash, erase, partial bool) error {
	return v.base.BatchWrite(incoming, bestBlock, erase, partial)
}
