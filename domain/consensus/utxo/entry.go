package utxo

// EntryFlags is the independent-bits flag set carried by every CacheEntry.
// Modeled on CCoinsCacheEntry::Flags in coins.cpp.
type EntryFlags uint8

const (
	// Dirty marks an entry as differing from the parent view; it must be
	// written out on the next flush.
	Dirty EntryFlags = 1 << 0
	// Fresh marks an entry for which the parent has no visible unspent
	// entry: if this entry becomes spent, it may be dropped outright
	// instead of being propagated to the parent.
	Fresh EntryFlags = 1 << 1
	// Flush hints that this entry is a good candidate for early write-out
	// during a partial flush. Set originally only via Cache.TagFlushable;
	// Cache.BatchWrite carries it over from a child entry into the parent.
	Flush EntryFlags = 1 << 2
)

// Has reports whether all bits in want are set in f.
func (f EntryFlags) Has(want EntryFlags) bool {
	return f&want == want
}

// legalAttr implements invariant 1 from spec.md §3: of the eight
// combinations of (dirty, fresh, spent), only {0,1,3,5,6} occur in
// practice (using dirty=1, fresh=2, spent=4 bit weights); {2,4,7} never do.
func legalAttr(flags EntryFlags, spent bool) bool {
	attr := 0
	if flags.Has(Dirty) {
		attr |= 1
	}
	if flags.Has(Fresh) {
		attr |= 2
	}
	if spent {
		attr |= 4
	}
	switch attr {
	case 0, 1, 3, 5, 6:
		return true
	default:
		return false
	}
}

// CacheEntry pairs a Coin with the flags describing its relationship to
// the cache's parent view.
type CacheEntry struct {
	Coin  Coin
	Flags EntryFlags
}

func (e *CacheEntry) isDirty() bool { return e.Flags.Has(Dirty) }
func (e *CacheEntry) isFresh() bool { return e.Flags.Has(Fresh) }
