package attendance

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Ledger is the append-only attendance store. Append must make the
// duplicate check and the write one atomic step.
type Ledger interface {
	Append(ctx context.Context, evt Event) (Outcome, Event, error)
	QueryByDate(ctx context.Context, date string) ([]Event, error)
}

func prepare(evt Event) (Event, error) {
	if strings.TrimSpace(evt.IdentityID) == "" || strings.TrimSpace(evt.SubjectCode) == "" {
		return Event{}, fmt.Errorf("%w: identity and subject required", ErrInvalidEvent)
	}
	date, err := ParseDate(evt.Date)
	if err != nil {
		return Event{}, err
	}
	evt.Date = date
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.MarkedAt.IsZero() {
		evt.MarkedAt = time.Now()
	}
	return evt, nil
}

// MemoryLedger is a mutex-guarded ledger for single-process deployments.
type MemoryLedger struct {
	mu     sync.Mutex
	events []Event
	index  map[Key]int
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{index: make(map[Key]int)}
}

// Append stores evt unless its key is already present, in which case the
// existing event is returned with AlreadyMarked.
func (l *MemoryLedger) Append(_ context.Context, evt Event) (Outcome, Event, error) {
	evt, err := prepare(evt)
	if err != nil {
		return 0, Event{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if i, ok := l.index[evt.Key()]; ok {
		return AlreadyMarked, l.events[i], nil
	}
	l.index[evt.Key()] = len(l.events)
	l.events = append(l.events, evt)
	return Marked, evt, nil
}

// QueryByDate returns the day's events in insertion order.
func (l *MemoryLedger) QueryByDate(_ context.Context, date string) ([]Event, error) {
	date, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, e := range l.events {
		if e.Date == date {
			out = append(out, e)
		}
	}
	return out, nil
}
