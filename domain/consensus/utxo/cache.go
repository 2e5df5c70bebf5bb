// Package utxo implements the stacked, write-back UTXO cache: the Coin
// View/Coin Cache/Error-Catching View trio that sits between a validator
// and the durable coin store. Translated from coins.cpp (read in full
// from _examples/original_source/src/coins.cpp) into Go; see DESIGN.md
// for the per-method grounding.
package utxo

import (
	"github.com/LarryRuane/bitcoin/domain/consensus/model/externalapi"
	"github.com/LarryRuane/bitcoin/domain/consensus/utils/multiset"
)

// FlushLowWatermarkPct and FlushHighWatermarkPct are the default partial-
// flush thresholds from spec.md §4.D: at or below 10% FLUSH-tagged usage,
// or at or above 90%, Flush does a full flush instead of a partial one.
const (
	FlushLowWatermarkPct  = 10
	FlushHighWatermarkPct = 90
)

// Cache is the write-back cache layer: §4.D of spec.md. It owns a map of
// CacheEntry, a pointer to its parent View (swappable via BackedView), a
// best-block hash, and the running memory-accounting totals.
type Cache struct {
	*BackedView

	entries map[externalapi.DomainOutpoint]*CacheEntry

	bestBlock    externalapi.DomainHash
	haveBestBlock bool

	cachedCoinsUsage uint64
	flushCoinsUsage  uint64
	flushCount       int

	flushLowWatermarkPct  uint64
	flushHighWatermarkPct uint64

	commitment *multiset.Multiset
}

// NewCache creates a cache layered on top of parent. withCommitment opts
// into the UTXO-set commitment supplement (§4.D "Supplement"). The
// partial-flush watermarks default to FlushLowWatermarkPct/
// FlushHighWatermarkPct; a daemon wires its own config values in through
// SetFlushWatermarks (spec.md §2: exposed as flags, not hardcoded).
func NewCache(parent View, withCommitment bool) *Cache {
	c := &Cache{
		BackedView:            NewBackedView(parent),
		entries:               make(map[externalapi.DomainOutpoint]*CacheEntry),
		flushLowWatermarkPct:  FlushLowWatermarkPct,
		flushHighWatermarkPct: FlushHighWatermarkPct,
	}
	if withCommitment {
		c.commitment = multiset.New()
	}
	return c
}

// SetFlushWatermarks overrides the partial-flush low/high watermark
// percentages used by Flush. Both must be in [0, 100] with low < high.
func (c *Cache) SetFlushWatermarks(lowPct, highPct uint64) {
	if lowPct > 100 || highPct > 100 || lowPct >= highPct {
		logicErrorf("SetFlushWatermarks", nil, "invalid watermarks: low=%d high=%d", lowPct, highPct)
	}
	c.flushLowWatermarkPct = lowPct
	c.flushHighWatermarkPct = highPct
}

func (c *Cache) memoryAdd(entry *CacheEntry) {
	usage := entry.Coin.DynamicMemoryUsage()
	c.cachedCoinsUsage += usage
	if entry.Flags.Has(Flush) {
		c.flushCount++
		c.flushCoinsUsage += usage
	}
	if c.flushCoinsUsage > c.cachedCoinsUsage {
		logicErrorf("memoryAdd", nil, "flush usage %d exceeds total usage %d", c.flushCoinsUsage, c.cachedCoinsUsage)
	}
}

func (c *Cache) memorySub(entry *CacheEntry) {
	usage := entry.Coin.DynamicMemoryUsage()
	c.cachedCoinsUsage -= usage
	if entry.Flags.Has(Flush) {
		if c.flushCount == 0 {
			logicErrorf("memorySub", nil, "flush count underflow")
		}
		c.flushCount--
		if c.flushCoinsUsage < usage {
			logicErrorf("memorySub", nil, "flush usage underflow")
		}
		c.flushCoinsUsage -= usage
	}
	if c.flushCoinsUsage > c.cachedCoinsUsage {
		logicErrorf("memorySub", nil, "flush usage %d exceeds total usage %d", c.flushCoinsUsage, c.cachedCoinsUsage)
	}
}

func (c *Cache) commit(outpoint externalapi.DomainOutpoint, coin Coin) {
	if c.commitment != nil && !coin.IsSpent() {
		c.commitment.Add(commitmentElement(outpoint, coin))
	}
}

func (c *Cache) uncommit(outpoint externalapi.DomainOutpoint, coin Coin) {
	if c.commitment != nil && !coin.IsSpent() {
		c.commitment.Remove(commitmentElement(outpoint, coin))
	}
}

// Commitment returns the current UTXO-set commitment hash, or the zero
// hash if this cache was not constructed with withCommitment.
func (c *Cache) Commitment() externalapi.DomainHash {
	if c.commitment == nil {
		return externalapi.DomainHash{}
	}
	return c.commitment.Hash()
}

// fetch locates outpoint's entry, descending to the parent view on a
// local miss. Internal helper behind Get/Have/AccessCoin/SpendCoin.
// Grounded on CCoinsViewCache::FetchCoin.
func (c *Cache) fetch(outpoint externalapi.DomainOutpoint) *CacheEntry {
	if entry, ok := c.entries[outpoint]; ok {
		return entry
	}
	coin, ok := c.base.Get(outpoint)
	if !ok {
		return nil
	}
	entry := &CacheEntry{Coin: coin}
	if coin.IsSpent() {
		// The parent has only an empty entry for this outpoint; mark it
		// FRESH only. It hasn't been locally modified, just fetched, and
		// DIRTY|FRESH|SPENT together is an illegal combination.
		entry.Flags = Fresh
	}
	c.entries[outpoint] = entry
	c.memoryAdd(entry)
	return entry
}

// Get looks up outpoint, descending through the parent view if needed.
// Reports false if the outpoint is absent or spent.
func (c *Cache) Get(outpoint externalapi.DomainOutpoint) (Coin, bool) {
	entry := c.fetch(outpoint)
	if entry == nil || entry.Coin.IsSpent() {
		return Coin{}, false
	}
	return entry.Coin, true
}

var spentSentinel = SpentCoin()

// AccessCoin returns a reference-like copy of outpoint's coin, or the
// global spent sentinel on miss — never a nil or mutable shared value.
// Grounded on CCoinsViewCache::AccessCoin / the "global spent sentinel"
// design note in spec.md §9.
func (c *Cache) AccessCoin(outpoint externalapi.DomainOutpoint) Coin {
	entry := c.fetch(outpoint)
	if entry == nil {
		return spentSentinel
	}
	return entry.Coin
}

// Have reports whether outpoint has a non-spent entry, descending if needed.
func (c *Cache) Have(outpoint externalapi.DomainOutpoint) bool {
	entry := c.fetch(outpoint)
	return entry != nil && !entry.Coin.IsSpent()
}

// HaveInCache is a local-only probe: it never descends to the parent.
func (c *Cache) HaveInCache(outpoint externalapi.DomainOutpoint) bool {
	entry, ok := c.entries[outpoint]
	return ok && !entry.Coin.IsSpent()
}

// AddCoin installs coin at outpoint. possibleOverwrite must be true if an
// unspent entry may already exist there (e.g. a coinbase output); if it's
// false and one does, this panics with a LogicError, exactly as
// coins.cpp's AddCoin throws std::logic_error for the same misuse.
func (c *Cache) AddCoin(outpoint externalapi.DomainOutpoint, coin Coin, possibleOverwrite bool) {
	if coin.IsSpent() {
		logicErrorf("AddCoin", outpoint, "attempted to add a spent coin")
	}
	if isUnspendable(coin.ScriptPublicKey) {
		return
	}
	entry, existed := c.entries[outpoint]
	if !existed {
		// A brand-new slot reads as spent, same as a default-constructed
		// Coin in coins.cpp's AddCoin (its null output is IsSpent()): that's
		// what lets the !possibleOverwrite check below pass for a genuinely
		// new outpoint.
		entry = &CacheEntry{Coin: SpentCoin()}
		c.entries[outpoint] = entry
	} else {
		c.memorySub(entry)
		c.uncommit(outpoint, entry.Coin)
	}

	fresh := false
	if !possibleOverwrite {
		if !entry.Coin.IsSpent() {
			logicErrorf("AddCoin", outpoint, "attempted to overwrite an unspent coin (possibleOverwrite is false)")
		}
		// A spent-but-DIRTY entry hasn't had its spentness flushed to the
		// parent yet; re-adding it here can't be marked FRESH or that
		// spentness would never reach the parent if we spend again before
		// flushing (see coins.cpp's AddCoin comment, read in full).
		fresh = !entry.isDirty()
	}

	entry.Coin = coin
	entry.Flags |= Dirty
	if fresh {
		entry.Flags |= Fresh
	}
	entry.Flags &^= Flush

	c.memoryAdd(entry)
	c.commit(outpoint, coin)
}

func isUnspendable(script []byte) bool {
	// No script-engine knowledge lives in this layer (out of scope per
	// spec.md §1); the only thing this layer can recognize on its own is
	// a nil script, used as the provably-unspendable marker. A non-nil
	// empty script is not treated as unspendable.
	return script == nil
}

// SpendCoin marks outpoint's coin spent, pulling it in via fetch first.
// Reports false (no side effects) if the outpoint has no entry at all.
// If moveout is non-nil, the coin's prior value is written there.
func (c *Cache) SpendCoin(outpoint externalapi.DomainOutpoint, moveout *Coin) bool {
	entry := c.fetch(outpoint)
	if entry == nil {
		return false
	}
	c.memorySub(entry)
	c.uncommit(outpoint, entry.Coin)
	if moveout != nil {
		*moveout = entry.Coin
	}
	if entry.isFresh() {
		delete(c.entries, outpoint)
	} else {
		entry.Flags |= Dirty
		entry.Flags &^= Flush
		entry.Coin.Clear()
	}
	return true
}

// Uncache drops outpoint's local entry iff it carries no pending work
// (all flags zero): a read-only fetch can be evicted for free, but an
// entry with anything dirty, fresh, or flush-tagged must stay.
func (c *Cache) Uncache(outpoint externalapi.DomainOutpoint) {
	entry, ok := c.entries[outpoint]
	if !ok || entry.Flags != 0 {
		return
	}
	c.memorySub(entry)
	delete(c.entries, outpoint)
}

// TagFlushable is the explicit policy hook by which a caller marks an
// entry as a good candidate for early write-out during a partial flush.
// spec.md §9 leaves "who sets FLUSH" to the caller; this is that hook —
// see DESIGN.md's Open Question decision.
func (c *Cache) TagFlushable(outpoint externalapi.DomainOutpoint) {
	entry, ok := c.entries[outpoint]
	if !ok || entry.Flags.Has(Flush) {
		return
	}
	c.flushCount++
	c.flushCoinsUsage += entry.Coin.DynamicMemoryUsage()
	entry.Flags |= Flush
	if c.flushCoinsUsage > c.cachedCoinsUsage {
		logicErrorf("TagFlushable", outpoint, "flush usage exceeds total usage")
	}
}

// BestBlock lazily inherits the parent's best block if this cache has
// never had one set directly.
func (c *Cache) BestBlock() externalapi.DomainHash {
	if !c.haveBestBlock {
		c.bestBlock = c.base.BestBlock()
	}
	return c.bestBlock
}

// SetBestBlock unconditionally sets the best-block hash for this cache.
func (c *Cache) SetBestBlock(hash externalapi.DomainHash) {
	c.bestBlock = hash
	c.haveBestBlock = true
}

// CachedCoinsUsage returns the grand total dynamic memory accounted for
// by this cache's entries.
func (c *Cache) CachedCoinsUsage() uint64 { return c.cachedCoinsUsage }

// FlushCoinsUsage returns the subset of CachedCoinsUsage attributable to
// FLUSH-tagged entries. Always <= CachedCoinsUsage (invariant 2).
func (c *Cache) FlushCoinsUsage() uint64 { return c.flushCoinsUsage }

// Size returns the number of entries held locally.
func (c *Cache) Size() int { return len(c.entries) }
