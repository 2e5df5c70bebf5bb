package utxo

import (
	"testing"

	"github.com/LarryRuane/bitcoin/domain/consensus/model/externalapi"
)

// memView is a minimal in-memory View standing in for a backing store in
// these tests: no DIRTY/FRESH bookkeeping of its own, just a flat map,
// matching the shape database/ldb.View presents to the cache above it.
type memView struct {
	BaseView
	coins     map[externalapi.DomainOutpoint]Coin
	bestBlock externalapi.DomainHash
}

func newMemView() *memView {
	return &memView{coins: make(map[externalapi.DomainOutpoint]Coin)}
}

func (v *memView) Get(outpoint externalapi.DomainOutpoint) (Coin, bool) {
	coin, ok := v.coins[outpoint]
	if !ok || coin.IsSpent() {
		return Coin{}, false
	}
	return coin, true
}

func (v *memView) Have(outpoint externalapi.DomainOutpoint) bool {
	_, ok := v.Get(outpoint)
	return ok
}

func (v *memView) BestBlock() externalapi.DomainHash { return v.bestBlock }

func (v *memView) BatchWrite(incoming map[externalapi.DomainOutpoint]*CacheEntry, bestBlock externalapi.DomainHash, erase, partial bool) error {
	_ = partial
	for outpoint, entry := range incoming {
		if erase {
			delete(incoming, outpoint)
		}
		if entry.Coin.IsSpent() {
			delete(v.coins, outpoint)
		} else {
			v.coins[outpoint] = entry.Coin
		}
	}
	v.bestBlock = bestBlock
	return nil
}

func op(b byte) externalapi.DomainOutpoint {
	var id externalapi.DomainTransactionID
	id[0] = b
	return externalapi.DomainOutpoint{TransactionID: id}
}

func script(n int) []byte {
	s := make([]byte, n)
	for i := range s {
		s[i] = 0xAB
	}
	return s
}

func mustRecoverLogicError(t *testing.T, f func()) *LogicError {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected a LogicError panic, got none")
		}
		if _, ok := r.(*LogicError); !ok {
			panic(r)
		}
	}()
	f()
	return nil
}

func TestCacheGetAddSpend(t *testing.T) {
	cache := NewCache(newMemView(), false)
	outpoint := op(1)
	coin := NewCoin(500, script(4), 10, false)

	if cache.Have(outpoint) {
		t.Fatalf("outpoint should not exist yet")
	}

	cache.AddCoin(outpoint, coin, false)
	got, ok := cache.Get(outpoint)
	if !ok {
		t.Fatalf("expected a hit after AddCoin")
	}
	if got.Amount != coin.Amount || got.BlockHeight != coin.BlockHeight {
		t.Fatalf("got %+v, want %+v", got, coin)
	}
	if !cache.HaveInCache(outpoint) {
		t.Fatalf("expected a local entry after AddCoin")
	}

	var moved Coin
	if !cache.SpendCoin(outpoint, &moved) {
		t.Fatalf("SpendCoin should succeed on a known outpoint")
	}
	if moved.Amount != coin.Amount {
		t.Fatalf("moveout = %+v, want the spent coin's prior value", moved)
	}
	if _, ok := cache.Get(outpoint); ok {
		t.Fatalf("expected a miss after SpendCoin")
	}
}

func TestCacheFreshSpentCollapses(t *testing.T) {
	cache := NewCache(newMemView(), false)
	outpoint := op(2)
	cache.AddCoin(outpoint, NewCoin(1, script(4), 0, false), false)

	if !cache.entries[outpoint].isFresh() {
		t.Fatalf("a brand-new AddCoin entry should be FRESH")
	}

	cache.SpendCoin(outpoint, nil)
	if cache.HaveInCache(outpoint) {
		t.Fatalf("a FRESH entry that is spent must annihilate, not persist as a spent tombstone")
	}
	if cache.Size() != 0 {
		t.Fatalf("cache size = %d, want 0 after fresh+spent collapse", cache.Size())
	}
}

func TestCacheAddCoinRequiresOverwriteFlag(t *testing.T) {
	cache := NewCache(newMemView(), false)
	outpoint := op(3)
	cache.AddCoin(outpoint, NewCoin(1, script(4), 0, false), false)

	mustRecoverLogicError(t, func() {
		cache.AddCoin(outpoint, NewCoin(2, script(4), 0, false), false)
	})
}

func TestCacheAddCoinSkipsUnspendable(t *testing.T) {
	cache := NewCache(newMemView(), false)
	outpoint := op(4)
	cache.AddCoin(outpoint, NewCoin(1, nil, 0, false), false)

	if cache.HaveInCache(outpoint) {
		t.Fatalf("an unspendable coin (nil script) must never be installed")
	}
}

func TestCacheFlushFull(t *testing.T) {
	base := newMemView()
	cache := NewCache(base, false)

	outpoints := []externalapi.DomainOutpoint{op(1), op(2), op(3)}
	for i, o := range outpoints {
		cache.AddCoin(o, NewCoin(uint64(i+1)*100, script(4), 0, false), false)
	}

	tip := externalapi.DomainHash{0xFF}
	cache.SetBestBlock(tip)
	if err := cache.Flush(true); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if cache.Size() != 0 {
		t.Fatalf("cache size after a full flush = %d, want 0", cache.Size())
	}
	if cache.CachedCoinsUsage() != 0 || cache.FlushCoinsUsage() != 0 {
		t.Fatalf("usage counters must be zero after a full flush")
	}
	for _, o := range outpoints {
		if !base.Have(o) {
			t.Fatalf("expected %s to have reached the backing store", o)
		}
	}
	if base.BestBlock() != tip {
		t.Fatalf("backing store's best block wasn't advanced")
	}
}

func TestCacheFlushPartialRetainsNonFlushEntries(t *testing.T) {
	base := newMemView()
	cache := NewCache(base, false)

	flushed := op(1)
	retained := []externalapi.DomainOutpoint{op(2), op(3), op(4)}

	cache.AddCoin(flushed, NewCoin(1, script(10), 0, false), false)
	for _, o := range retained {
		cache.AddCoin(o, NewCoin(1, script(10), 0, false), false)
	}
	cache.TagFlushable(flushed)

	// 1 of 4 equal-size entries tagged: 10/40 = 25%, squarely inside the
	// (10%, 90%) partial-flush band.
	if err := cache.Flush(true); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if cache.Size() != len(retained) {
		t.Fatalf("cache size after partial flush = %d, want %d", cache.Size(), len(retained))
	}
	if cache.HaveInCache(flushed) {
		t.Fatalf("the flush-tagged entry should have been removed locally")
	}
	for _, o := range retained {
		if !cache.HaveInCache(o) {
			t.Fatalf("retained entry %s should still be local after a partial flush", o)
		}
	}
	if !base.Have(flushed) {
		t.Fatalf("the flush-tagged entry should have reached the backing store")
	}
	for _, o := range retained {
		if base.Have(o) {
			t.Fatalf("retained entry %s must not have reached the backing store yet", o)
		}
	}
	if cache.FlushCoinsUsage() != 0 {
		t.Fatalf("flushCoinsUsage after partial flush = %d, want 0", cache.FlushCoinsUsage())
	}
	if got, want := cache.CachedCoinsUsage(), uint64(30); got != want {
		t.Fatalf("cachedCoinsUsage after partial flush = %d, want %d", got, want)
	}
}

func TestCacheUncache(t *testing.T) {
	base := newMemView()
	base.coins[op(5)] = NewCoin(1, script(4), 0, false)
	cache := NewCache(base, false)

	// A read-only fetch carries no flags and can be evicted for free.
	cache.Get(op(5))
	cache.Uncache(op(5))
	if cache.HaveInCache(op(5)) {
		t.Fatalf("a clean fetched entry should be evictable via Uncache")
	}

	cache.AddCoin(op(6), NewCoin(1, script(4), 0, false), false)
	cache.Uncache(op(6))
	if !cache.HaveInCache(op(6)) {
		t.Fatalf("a dirty entry must survive Uncache")
	}
}

func TestCacheSync(t *testing.T) {
	base := newMemView()
	unspent := op(7)
	spent := op(8)
	base.coins[unspent] = NewCoin(1, script(4), 0, false)
	base.coins[spent] = NewCoin(1, script(4), 0, false)

	cache := NewCache(base, false)
	cache.Get(unspent) // pull a non-FRESH entry up from base
	cache.SpendCoin(spent, nil)

	if err := cache.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if cache.Size() != 1 {
		t.Fatalf("cache size after Sync = %d, want 1 (spent entries dropped)", cache.Size())
	}
	if cache.entries[unspent].Flags != 0 {
		t.Fatalf("surviving entry's flags after Sync = %d, want 0", cache.entries[unspent].Flags)
	}
	if base.Have(spent) {
		t.Fatalf("Sync should have persisted the spend down to the base view")
	}
}

func TestCacheSanityCheck(t *testing.T) {
	base := newMemView()
	cache := NewCache(base, false)
	cache.AddCoin(op(9), NewCoin(1, script(4), 0, false), false)
	cache.AddCoin(op(10), NewCoin(1, script(4), 0, false), false)
	cache.TagFlushable(op(10))
	cache.SanityCheck() // must not panic
}

func TestBatchWriteParentFreshChildSpentAnnihilates(t *testing.T) {
	base := newMemView()
	cache := NewCache(base, false)

	outpoint := op(11)
	// Whitebox: construct a FRESH|DIRTY unspent entry directly, standing in
	// for a mid-layer cache that created this coin itself (as AddCoin does
	// for an outpoint its own parent has no unspent entry for).
	cache.entries[outpoint] = &CacheEntry{Coin: NewCoin(1, script(4), 0, false), Flags: Fresh | Dirty}
	cache.cachedCoinsUsage = cache.entries[outpoint].Coin.DynamicMemoryUsage()

	child := map[externalapi.DomainOutpoint]*CacheEntry{
		outpoint: {Coin: SpentCoin(), Flags: Dirty},
	}
	if err := cache.BatchWrite(child, externalapi.DomainHash{}, true, false); err != nil {
		t.Fatalf("BatchWrite: %v", err)
	}
	if cache.HaveInCache(outpoint) {
		t.Fatalf("FRESH parent entry + spent child must annihilate entirely")
	}
	if cache.CachedCoinsUsage() != 0 {
		t.Fatalf("cachedCoinsUsage after annihilation = %d, want 0", cache.CachedCoinsUsage())
	}
}

func TestBatchWriteFreshMisappliedIsLogicError(t *testing.T) {
	base := newMemView()
	cache := NewCache(base, false)

	outpoint := op(12)
	cache.AddCoin(outpoint, NewCoin(1, script(4), 0, false), false)

	child := map[externalapi.DomainOutpoint]*CacheEntry{
		outpoint: {Coin: NewCoin(2, script(4), 0, false), Flags: Dirty | Fresh},
	}
	mustRecoverLogicError(t, func() {
		cache.BatchWrite(child, externalapi.DomainHash{}, true, false)
	})
}

func TestBatchWriteParentLacksEntryCreatesDirtyNotFresh(t *testing.T) {
	base := newMemView()
	cache := NewCache(base, false)

	outpoint := op(13)
	child := map[externalapi.DomainOutpoint]*CacheEntry{
		outpoint: {Coin: NewCoin(7, script(4), 0, false), Flags: Dirty},
	}
	if err := cache.BatchWrite(child, externalapi.DomainHash{}, true, false); err != nil {
		t.Fatalf("BatchWrite: %v", err)
	}
	entry, ok := cache.entries[outpoint]
	if !ok {
		t.Fatalf("expected an entry to be created in the parent")
	}
	if entry.isFresh() {
		t.Fatalf("a non-FRESH child must not become FRESH in the parent")
	}
	if !entry.isDirty() {
		t.Fatalf("a folded-in entry must be DIRTY")
	}
}

func TestBatchWriteParentLacksEntryFreshSpentAnnihilates(t *testing.T) {
	base := newMemView()
	cache := NewCache(base, false)

	outpoint := op(14)
	child := map[externalapi.DomainOutpoint]*CacheEntry{
		outpoint: {Coin: SpentCoin(), Flags: Dirty | Fresh},
	}
	if err := cache.BatchWrite(child, externalapi.DomainHash{}, true, false); err != nil {
		t.Fatalf("BatchWrite: %v", err)
	}
	if cache.HaveInCache(outpoint) {
		t.Fatalf("a FRESH+spent child with nothing in the parent must never materialize an entry")
	}
}

func TestCommitmentTracksAddAndSpend(t *testing.T) {
	base := newMemView()
	cache := NewCache(base, true)

	empty := cache.Commitment()
	cache.AddCoin(op(15), NewCoin(1, script(4), 0, false), false)
	afterAdd := cache.Commitment()
	if afterAdd == empty {
		t.Fatalf("commitment hash should change after adding a coin")
	}

	cache.SpendCoin(op(15), nil)
	afterSpend := cache.Commitment()
	if afterSpend != empty {
		t.Fatalf("commitment hash should return to its initial value after add-then-spend of the same coin")
	}
}
