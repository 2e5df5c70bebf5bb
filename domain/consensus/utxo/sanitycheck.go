package utxo

// SanityCheck iterates every local entry, asserting legality of its flag
// combination (invariant 1) and recomputing the memory totals to confirm
// they match the running counters (invariant 2). Grounded on
// CCoinsViewCache::SanityCheck.
func (c *Cache) SanityCheck() {
	var recomputed, recomputedFlush uint64
	var flushCount int
	for outpoint, entry := range c.entries {
		if !legalAttr(entry.Flags, entry.Coin.IsSpent()) {
			logicErrorf("SanityCheck", outpoint, "illegal flag/spent combination: flags=%d spent=%v", entry.Flags, entry.Coin.IsSpent())
		}
		usage := entry.Coin.DynamicMemoryUsage()
		recomputed += usage
		if entry.Flags.Has(Flush) {
			flushCount++
			recomputedFlush += usage
		}
	}
	if recomputed != c.cachedCoinsUsage {
		logicErrorf("SanityCheck", nil, "cachedCoinsUsage mismatch: recomputed %d, tracked %d", recomputed, c.cachedCoinsUsage)
	}
	if recomputedFlush != c.flushCoinsUsage {
		logicErrorf("SanityCheck", nil, "flushCoinsUsage mismatch: recomputed %d, tracked %d", recomputedFlush, c.flushCoinsUsage)
	}
	if flushCount != c.flushCount {
		logicErrorf("SanityCheck", nil, "flushCount mismatch: recomputed %d, tracked %d", flushCount, c.flushCount)
	}
}
