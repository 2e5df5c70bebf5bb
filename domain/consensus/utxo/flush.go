package utxo

import "github.com/LarryRuane/bitcoin/domain/consensus/model/externalapi"

// Flush persists this cache's writeset into its parent and, on success,
// either empties the local map (full flush) or retains the non-FLUSH
// entries (partial flush). Grounded on CCoinsViewCache::Flush, including
// its 10%/90% watermark policy (spec.md §4.D). A partial flush hands the
// parent only the FLUSH-tagged subset of entries, per spec.md §4.D
// ("local map retains the non-flush entries") — this cache's own map
// must shrink by exactly that subset, not be emptied wholesale.
func (c *Cache) Flush(partialOk bool) error {
	partial := partialOk &&
		c.flushCoinsUsage*100 > c.cachedCoinsUsage*c.flushLowWatermarkPct &&
		c.flushCoinsUsage*100 < c.cachedCoinsUsage*c.flushHighWatermarkPct

	if !partial {
		if err := c.base.BatchWrite(c.entries, c.bestBlock, true, false); err != nil {
			return err
		}
		if len(c.entries) != 0 {
			logicErrorf("Flush", nil, "not all cached coins were erased")
		}
		c.reallocateCache()
		c.cachedCoinsUsage = 0
		c.flushCoinsUsage = 0
		c.flushCount = 0
		return nil
	}

	keys := make([]externalapi.DomainOutpoint, 0, c.flushCount)
	toFlush := make(map[externalapi.DomainOutpoint]*CacheEntry, c.flushCount)
	for outpoint, entry := range c.entries {
		if entry.Flags.Has(Flush) {
			keys = append(keys, outpoint)
			toFlush[outpoint] = entry
		}
	}
	// BatchWrite (erase=true) drains toFlush itself; keys is our only
	// remaining record of which outpoints to remove from c.entries.
	if err := c.base.BatchWrite(toFlush, c.bestBlock, true, true); err != nil {
		return err
	}
	for _, outpoint := range keys {
		delete(c.entries, outpoint)
	}
	if c.cachedCoinsUsage < c.flushCoinsUsage {
		logicErrorf("Flush", nil, "cached usage underflow during partial flush")
	}
	c.cachedCoinsUsage -= c.flushCoinsUsage
	c.flushCoinsUsage = 0
	c.flushCount = 0
	return nil
}

// Sync persists this cache's writeset into its parent without evicting
// entries: surviving unspent entries are demoted to clean (flags=0),
// spent entries are dropped. Grounded on CCoinsViewCache::Sync.
func (c *Cache) Sync() error {
	if err := c.base.BatchWrite(c.entries, c.bestBlock, false, false); err != nil {
		return err
	}
	for outpoint, entry := range c.entries {
		if entry.Coin.IsSpent() {
			c.memorySub(entry)
			delete(c.entries, outpoint)
		} else {
			entry.Flags = 0
		}
	}
	return nil
}

// reallocateCache rebuilds the backing map after a full flush emptied it,
// so the runtime can reclaim whatever bucket capacity the old map had
// grown to. Grounded on CCoinsViewCache::ReallocateCache.
func (c *Cache) reallocateCache() {
	if len(c.entries) != 0 {
		logicErrorf("reallocateCache", nil, "cache must be empty before reallocation")
	}
	c.entries = make(map[externalapi.DomainOutpoint]*CacheEntry)
}
