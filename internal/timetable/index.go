package timetable

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrOverlapConflict is matched by every *OverlapError.
var ErrOverlapConflict = errors.New("timetable overlap conflict")

// ErrInvalidSlot wraps every single-slot validation failure.
var ErrInvalidSlot = errors.New("invalid slot")

// OverlapError names the first pair of conflicting slots.
type OverlapError struct {
	A, B Slot
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%v: %s overlaps %s", ErrOverlapConflict, e.A, e.B)
}

func (e *OverlapError) Is(target error) bool { return target == ErrOverlapConflict }

// Store persists the single active timetable.
type Store interface {
	Replace(ctx context.Context, slots []Slot) error
	Load(ctx context.Context) ([]Slot, error)
}

// Index answers "which class is running now". Reads are shared; Replace
// swaps the whole timetable.
type Index struct {
	mu    sync.RWMutex
	slots []Slot
	store Store
	loc   *time.Location
}

// NewIndex creates an empty index. store may be nil for a purely in-memory
// timetable; loc nil means time.Local.
func NewIndex(store Store, loc *time.Location) *Index {
	if loc == nil {
		loc = time.Local
	}
	return &Index{store: store, loc: loc}
}

// Location is the zone used to derive weekday and minute of day.
func (x *Index) Location() *time.Location { return x.loc }

// Validate checks every slot and the pairwise overlap rule.
func Validate(slots []Slot) error {
	for _, s := range slots {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSlot, err)
		}
	}
	for i := range slots {
		for j := i + 1; j < len(slots); j++ {
			if slots[i].Overlaps(slots[j]) {
				return &OverlapError{A: slots[i], B: slots[j]}
			}
		}
	}
	return nil
}

// Load replaces the in-memory copy with the persisted timetable.
func (x *Index) Load(ctx context.Context) error {
	if x.store == nil {
		return nil
	}
	slots, err := x.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load timetable: %w", err)
	}
	x.mu.Lock()
	x.slots = slots
	x.mu.Unlock()
	return nil
}

// Replace validates slots and, if they are consistent, discards the old
// timetable in favour of them. Nothing changes on error.
func (x *Index) Replace(ctx context.Context, slots []Slot) error {
	if err := Validate(slots); err != nil {
		return err
	}
	next := append([]Slot(nil), slots...)
	if x.store != nil {
		if err := x.store.Replace(ctx, next); err != nil {
			return fmt.Errorf("persist timetable: %w", err)
		}
	}
	x.mu.Lock()
	x.slots = next
	x.mu.Unlock()
	return nil
}

// Slots returns a copy of the current timetable.
func (x *Index) Slots() []Slot {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return append([]Slot(nil), x.slots...)
}

// CurrentSlot returns the slot running at now, if any.
func (x *Index) CurrentSlot(now time.Time) (Slot, bool) {
	local := now.In(x.loc)
	day, minute := Day(local.Weekday()), ClockOf(local)

	x.mu.RLock()
	defer x.mu.RUnlock()
	for _, s := range x.slots {
		if s.Contains(day, minute) {
			return s, true
		}
	}
	return Slot{}, false
}
