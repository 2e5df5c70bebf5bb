// Package rotator implements the numbered-backup log rotation algorithm
// from spec.md §4.A. It is deliberately hand-written rather than a thin
// wrapper around an external rotation module: spec.md calls this
// algorithm out by name as one of the three hard parts of this system
// ("routinely mis-implemented"), and the teacher's own dependency that
// covers this concern (github.com/jrick/logrotate) has no source present
// anywhere in the retrieved examples to ground an adaptation on — only
// its go.mod line. See DESIGN.md for the fuller justification.
package rotator

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// NoPromote is returned by Shift when keep == 0: there is no slot to
// promote the live log file into, because no backups are being kept.
const NoPromote = -1

// Shift makes room to promote the live log file into a numbered backup
// series name.0 ... name.max-1, keeping at most `keep` of them, and
// reports the slot the live log should next be renamed to.
//
// exists/remove/rename are injected so the algorithm can be tested
// without touching a filesystem; in production they're backed by
// os.Stat/os.Remove/os.Rename via Rotator below.
//
// Translated from spec.md §4.A:
//  1. scan 0..keep-1 for the first free slot; if there is one, that's it.
//  2. otherwise every slot 0..keep-1 is occupied: drop the oldest
//     contiguous prefix of occupied slots 0..max-1 down to `keep` of them
//     (this single step also covers shrinking keep across calls).
//  3. slide everything that's left down by however many were removed,
//     always removing the target before renaming into it.
//  4. slot keep (the first slot past the survivors) is the promotion target.
func Shift(keep, max int, exists func(int) bool, remove func(int) error, rename func(from, to int) error) (int, error) {
	if keep == 0 {
		for i := 0; i < max; i++ {
			if exists(i) {
				if err := remove(i); err != nil {
					return NoPromote, err
				}
			}
		}
		return NoPromote, nil
	}

	for gap := 0; gap < keep; gap++ {
		if !exists(gap) {
			return gap, nil
		}
	}

	// 0..keep-1 are all occupied. Backups are contiguous from 0 (spec.md
	// §6), so the occupied count is just how far that run extends.
	occupied := 0
	for occupied < max && exists(occupied) {
		occupied++
	}

	// Evict the oldest (occupied-keep) slots: zero in the steady state
	// (occupied==keep, nothing to do but promote into keep itself), and
	// more when a previously larger `keep` left extra backups behind.
	shift := occupied - keep
	if shift == 0 {
		return keep, nil
	}
	for i := 0; i < shift; i++ {
		if err := remove(i); err != nil {
			return NoPromote, err
		}
	}
	for i := shift; i < occupied; i++ {
		if err := rename(i, i-shift); err != nil {
			return NoPromote, err
		}
	}
	return keep, nil
}

// Rotator is an io.WriteCloser that rolls the underlying file over to a
// numbered backup series once it exceeds thresholdBytes, keeping at most
// maxBackups old copies. Its AddLogFileWithCustomRotator-style
// constructor arguments mirror infrastructure/logger.Backend's calling
// convention for the external module this package replaces.
type Rotator struct {
	mu            sync.Mutex
	path          string
	thresholdBytes int64
	maxBackups    int

	file *os.File
	size int64
}

// New opens (creating if necessary) path for append, ready to roll over
// once it grows past thresholdBytes, keeping at most maxBackups old
// copies named path.0 .. path.maxBackups-1 (path.0 is the oldest backup,
// the highest-numbered one the most recent).
func New(path string, thresholdBytes int64, maxBackups int) (*Rotator, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil && filepath.Dir(path) != "." {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Rotator{
		path:           path,
		thresholdBytes: thresholdBytes,
		maxBackups:     maxBackups,
		file:           f,
		size:           info.Size(),
	}, nil
}

func (r *Rotator) backupName(slot int) string {
	return fmt.Sprintf("%s.%d", r.path, slot)
}

// Write appends p to the live log file, rotating first if the write
// would push the file past its threshold.
func (r *Rotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.thresholdBytes > 0 && r.size+int64(len(p)) > r.thresholdBytes {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *Rotator) rotate() error {
	if err := r.file.Close(); err != nil {
		return err
	}

	// Shift leaves at most keep backups and names slot keep as the target,
	// so keep is one less than maxBackups. With maxBackups == 1, Shift(0)
	// clears slot 0 and the live file is promoted into it.
	keep := r.maxBackups - 1
	if keep < 0 {
		keep = 0
	}
	next, err := Shift(keep, r.maxBackups,
		func(i int) bool { _, err := os.Stat(r.backupName(i)); return err == nil },
		func(i int) error { return os.Remove(r.backupName(i)) },
		func(from, to int) error { return os.Rename(r.backupName(from), r.backupName(to)) },
	)
	if err != nil {
		return err
	}
	if next == NoPromote && r.maxBackups > 0 {
		next = 0
	}
	if next != NoPromote {
		if err := os.Rename(r.path, r.backupName(next)); err != nil {
			return err
		}
	} else {
		if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	r.file = f
	r.size = 0
	return nil
}

// Close closes the live log file.
func (r *Rotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}

var _ io.WriteCloser = (*Rotator)(nil)
