package externalapi

import (
	"bytes"
	"encoding/hex"

	"github.com/pkg/errors"
)

// DomainHashSize is the number of bytes in a DomainHash.
const DomainHashSize = 32

// DomainHash is an opaque 32-byte value. The coin cache stack uses it only
// to label which tip a cache layer's state corresponds to and, optionally,
// to hold a UTXO-set commitment; no particular hash function is mandated.
type DomainHash [DomainHashSize]byte

// NewDomainHashFromSlice copies hashBytes into a new DomainHash.
func NewDomainHashFromSlice(hashBytes []byte) (*DomainHash, error) {
	if len(hashBytes) != DomainHashSize {
		return nil, errors.Errorf("invalid hash length: want %d, got %d", DomainHashSize, len(hashBytes))
	}
	hash := DomainHash{}
	copy(hash[:], hashBytes)
	return &hash, nil
}

// String returns the hexadecimal encoding of the hash.
func (hash DomainHash) String() string {
	return hex.EncodeToString(hash[:])
}

// IsZero reports whether this is the zero-value hash, used to represent
// "no best block known yet".
func (hash DomainHash) IsZero() bool {
	return hash == DomainHash{}
}

// Equal reports whether hash and other represent the same value.
func (hash DomainHash) Equal(other DomainHash) bool {
	return hash == other
}

// Less gives DomainHash a total order, used when a deterministic
// iteration order over outpoints is needed (e.g. sanity-check reports).
func (hash DomainHash) Less(other DomainHash) bool {
	return bytes.Compare(hash[:], other[:]) < 0
}
