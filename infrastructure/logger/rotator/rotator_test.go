package rotator

import (
	"os"
	"path/filepath"
	"testing"
)

// fakeSlots models a numbered-backup series in memory, for exercising
// Shift without touching a filesystem.
type fakeSlots struct {
	occupied map[int]bool
}

func newFakeSlots(occupiedUpTo int) *fakeSlots {
	s := &fakeSlots{occupied: make(map[int]bool)}
	for i := 0; i < occupiedUpTo; i++ {
		s.occupied[i] = true
	}
	return s
}

func (s *fakeSlots) exists(i int) bool { return s.occupied[i] }
func (s *fakeSlots) remove(i int) error {
	delete(s.occupied, i)
	return nil
}
func (s *fakeSlots) rename(from, to int) error {
	delete(s.occupied, to)
	s.occupied[to] = s.occupied[from]
	delete(s.occupied, from)
	return nil
}
func (s *fakeSlots) count() int {
	n := 0
	for range s.occupied {
		n++
	}
	return n
}

func TestShiftFirstGapNoEviction(t *testing.T) {
	slots := newFakeSlots(1) // only slot 0 occupied
	next, err := Shift(3, 4, slots.exists, slots.remove, slots.rename)
	if err != nil {
		t.Fatalf("Shift: %v", err)
	}
	if next != 1 {
		t.Fatalf("next = %d, want 1 (first free slot under keep)", next)
	}
	if slots.count() != 1 {
		t.Fatalf("occupied count = %d, want 1 (no eviction on a gap)", slots.count())
	}
}

func TestShiftSteadyStateNoEviction(t *testing.T) {
	// keep=3, exactly 0,1,2 occupied: nothing to evict, promote into
	// slot 3. logging_tests.cpp:83-86.
	slots := newFakeSlots(3)
	next, err := Shift(3, 10, slots.exists, slots.remove, slots.rename)
	if err != nil {
		t.Fatalf("Shift: %v", err)
	}
	if next != 3 {
		t.Fatalf("next = %d, want 3 (keep)", next)
	}
	if slots.count() != 3 {
		t.Fatalf("occupied count = %d, want 3 (unchanged)", slots.count())
	}
	for i := 0; i < 3; i++ {
		if !slots.exists(i) {
			t.Fatalf("slot %d should be untouched", i)
		}
	}
}

func TestShiftSteadyStateEvictsOldest(t *testing.T) {
	// keep=3, four occupied (0..3): evict the oldest one, slide the rest
	// down, promote into slot 3. logging_tests.cpp:93-96.
	slots := newFakeSlots(4)
	next, err := Shift(3, 10, slots.exists, slots.remove, slots.rename)
	if err != nil {
		t.Fatalf("Shift: %v", err)
	}
	if next != 3 {
		t.Fatalf("next = %d, want 3 (keep)", next)
	}
	if slots.count() != 3 {
		t.Fatalf("occupied count = %d, want 3", slots.count())
	}
	if slots.exists(3) {
		t.Fatalf("slot 3 should be free for promotion")
	}
}

func TestShiftShrinkKeepEvictsExtras(t *testing.T) {
	// keep shrunk from a prior run (4) to 2, but 4 backups still exist on
	// disk: must evict exactly 4-2=2, leaving 2 occupied and slot 2 free
	// for promotion. logging_tests.cpp:113-116.
	slots := newFakeSlots(4)
	next, err := Shift(2, 10, slots.exists, slots.remove, slots.rename)
	if err != nil {
		t.Fatalf("Shift: %v", err)
	}
	if next != 2 {
		t.Fatalf("next = %d, want 2 (keep)", next)
	}
	if slots.count() != 2 {
		t.Fatalf("occupied count after shrink = %d, want 2", slots.count())
	}
	if !slots.exists(0) || !slots.exists(1) {
		t.Fatalf("the two surviving backups should have slid down to slots 0,1")
	}
	if slots.exists(2) {
		t.Fatalf("slot 2 should be free for promotion")
	}
}

func TestShiftKeepOneEvictsDownToOne(t *testing.T) {
	// Retaining only one backup: evict everything but the newest,
	// promote into slot 1. logging_tests.cpp:131-134.
	slots := newFakeSlots(4)
	next, err := Shift(1, 10, slots.exists, slots.remove, slots.rename)
	if err != nil {
		t.Fatalf("Shift: %v", err)
	}
	if next != 1 {
		t.Fatalf("next = %d, want 1 (keep)", next)
	}
	if slots.count() != 1 {
		t.Fatalf("occupied count = %d, want 1", slots.count())
	}
	if !slots.exists(0) {
		t.Fatalf("the single surviving backup should have slid down to slot 0")
	}
}

func TestShiftKeepZeroRemovesEverything(t *testing.T) {
	slots := newFakeSlots(3)
	next, err := Shift(0, 4, slots.exists, slots.remove, slots.rename)
	if err != nil {
		t.Fatalf("Shift: %v", err)
	}
	if next != NoPromote {
		t.Fatalf("next = %d, want NoPromote", next)
	}
	if slots.count() != 0 {
		t.Fatalf("occupied count = %d, want 0 when keep=0", slots.count())
	}
}

func TestRotatorRotatesOnThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.txt")

	r, err := New(path, 10, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	for i := 0; i < 5; i++ {
		if _, err := r.Write([]byte("0123456789")); err != nil {
			t.Fatalf("Write #%d: %v", i, err)
		}
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("live log file missing: %v", err)
	}
	if _, err := os.Stat(path + ".0"); err != nil {
		t.Fatalf("expected the oldest backup at .0: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) > 3 { // live file + at most 2 backups
		t.Fatalf("found %d files, want at most 3 (live + maxBackups=2)", len(entries))
	}
}
