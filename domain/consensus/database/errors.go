package database

import "github.com/pkg/errors"

// ErrNotFound denotes that the requested item was not found in the
// database. A miss: callers are free to treat it as "doesn't exist".
var ErrNotFound = errors.New("database: not found")

// IsNotFoundError checks whether an error is an ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ErrIO denotes that a read or write failed for a reason unrelated to
// the requested item's existence: a corrupt store, a failed disk, a
// closed handle. Unlike ErrNotFound this is never safe to treat as a
// miss — utxo.ErrorCatchingView turns it into a fatal exit instead of
// letting it masquerade as "coin doesn't exist".
var ErrIO = errors.New("database: I/O error")

// IsIOError checks whether an error is (or wraps) ErrIO.
func IsIOError(err error) bool {
	return errors.Is(err, ErrIO)
}
