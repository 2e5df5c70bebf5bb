package utxo

import "github.com/LarryRuane/bitcoin/domain/consensus/model/externalapi"

// BatchWrite folds a child's writeset into this cache and advances its
// best-block hash. Translated from CCoinsViewCache::BatchWrite in
// coins.cpp, read and followed line-by-line: the two branches below
// (parent lacks the outpoint / parent has it) match the original exactly,
// including which combination of FRESH/spent annihilates an entry versus
// propagating it, and the rule that FRESH is never set on *this* side of
// the fold (the grandparent may still need to learn of an eventual spend).
func (c *Cache) BatchWrite(incoming map[externalapi.DomainOutpoint]*CacheEntry, bestBlock externalapi.DomainHash, erase, partial bool) error {
	_ = partial // partial affects only which subset the caller chose to include in incoming
	for outpoint, child := range incoming {
		if erase {
			delete(incoming, outpoint)
		}
		if !child.isDirty() {
			continue
		}
		mine, haveMine := c.entries[outpoint]
		if !haveMine {
			if child.isFresh() && child.Coin.IsSpent() {
				// Never existed in the grandparent either; it annihilates.
				continue
			}
			entry := &CacheEntry{Coin: child.Coin, Flags: Dirty}
			if child.isFresh() {
				entry.Flags |= Fresh
			}
			entry.Flags |= child.Flags & Flush
			c.entries[outpoint] = entry
			c.memoryAdd(entry)
			c.commit(outpoint, entry.Coin)
			continue
		}

		if child.isFresh() && !mine.Coin.IsSpent() {
			logicErrorf("BatchWrite", outpoint, "FRESH flag misapplied to coin that exists in parent cache")
		}

		if mine.isFresh() && child.Coin.IsSpent() {
			// The grandparent has no entry either; just drop it here too.
			c.memorySub(mine)
			c.uncommit(outpoint, mine.Coin)
			delete(c.entries, outpoint)
			continue
		}

		c.memorySub(mine)
		c.uncommit(outpoint, mine.Coin)
		mine.Coin = child.Coin
		mine.Flags &^= Flush
		mine.Flags |= child.Flags & Flush
		mine.Flags |= Dirty
		c.memoryAdd(mine)
		c.commit(outpoint, mine.Coin)
	}
	c.bestBlock = bestBlock
	c.haveBestBlock = true
	return nil
}
