// Package multiset maintains an order-independent, incrementally
// updatable commitment to a set of byte strings, using an elliptic-curve
// multiset accumulator. It is the UTXO-set-commitment supplement to
// spec.md §4.D ("Supplement"): a cache can optionally fold every coin it
// adds or removes into one of these, so its running Hash is always the
// commitment to exactly the coins presently live in the set, independent
// of the order they were added or removed in.
//
// Grounded on domain/consensus/utils/multiset/multiset.go, which wraps
// the same github.com/kaspanet/go-secp256k1 MultiSet for the identical
// purpose; operating on caller-supplied byte strings rather than a
// domain type keeps this package free of any dependency back onto
// domain/consensus/utxo, which is itself the package that uses it.
package multiset

import (
	"github.com/kaspanet/go-secp256k1"
	"github.com/pkg/errors"

	"github.com/LarryRuane/bitcoin/domain/consensus/model/externalapi"
)

// Multiset accumulates Add/Remove calls into a single commitment hash.
// Removing data that was never added, or adding the same data twice, is
// a caller bug the underlying elliptic-curve accumulator does not
// detect on its own; callers are expected to keep Add/Remove balanced
// against their own bookkeeping (the utxo package does, via CacheEntry
// flags).
type Multiset struct {
	ms *secp256k1.MultiSet
}

// New returns an empty multiset, the commitment to zero elements.
func New() *Multiset {
	return &Multiset{ms: secp256k1.NewMultiset()}
}

// Add folds data into the set.
func (m *Multiset) Add(data []byte) {
	m.ms.Add(data)
}

// Remove folds data out of the set. data must have previously been
// Add-ed and not yet Removed.
func (m *Multiset) Remove(data []byte) {
	m.ms.Remove(data)
}

// Hash returns the commitment to every element currently in the set.
func (m *Multiset) Hash() externalapi.DomainHash {
	finalizedHash := m.ms.Finalize()
	finalizedHashAsByteArray := (*[secp256k1.HashSize]byte)(finalizedHash)
	hash, err := externalapi.NewDomainHashFromSlice(finalizedHashAsByteArray[:])
	if err != nil {
		// secp256k1.HashSize is defined to equal DomainHashSize; a
		// mismatch here means the two libraries disagree about hash
		// width, which is a build-time invariant, not a runtime one.
		panic(err)
	}
	return *hash
}

// Clone returns an independent copy of m.
func (m *Multiset) Clone() *Multiset {
	msClone := *m.ms
	return &Multiset{ms: &msClone}
}

// Serialize returns m's compressed point representation, suitable for
// persisting alongside a flushed UTXO set and restoring with FromBytes.
func (m *Multiset) Serialize() []byte {
	serialized := m.ms.Serialize()
	return serialized[:]
}

// FromBytes restores a multiset previously produced by Serialize.
func FromBytes(data []byte) (*Multiset, error) {
	serialized := &secp256k1.SerializedMultiSet{}
	if len(serialized) != len(data) {
		return nil, errors.Errorf("multiset bytes expected to be %d bytes, got %d", len(serialized), len(data))
	}
	copy(serialized[:], data)
	ms, err := secp256k1.DeserializeMultiSet(serialized)
	if err != nil {
		return nil, err
	}
	return &Multiset{ms: ms}, nil
}
