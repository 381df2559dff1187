package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"classattend/internal/observability"
	"classattend/internal/timetable"
)

// ErrNoActiveClass means the timetable has no slot at the requested time.
// It is an expected condition: nothing was written.
var ErrNoActiveClass = errors.New("no active class")

// SlotFinder resolves the class running at a given time.
type SlotFinder interface {
	CurrentSlot(now time.Time) (timetable.Slot, bool)
}

// Service ties the ledger to the timetable.
type Service struct {
	ledger Ledger
	slots  SlotFinder
	loc    *time.Location
}

// NewService creates a service. Dates are computed in loc (time.Local when nil).
func NewService(ledger Ledger, slots SlotFinder, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{ledger: ledger, slots: slots, loc: loc}
}

// Ledger exposes the underlying ledger for queries.
func (s *Service) Ledger() Ledger { return s.ledger }

// Location is the zone calendar dates are computed in.
func (s *Service) Location() *time.Location { return s.loc }

// ConfirmAttendance marks identityID present for the class running at now.
func (s *Service) ConfirmAttendance(ctx context.Context, identityID string, now time.Time) (Outcome, Event, error) {
	slot, ok := s.slots.CurrentSlot(now)
	if !ok {
		observability.AttendanceMarks.WithLabelValues("no_active_class").Inc()
		slog.Info("no active class", "identity", identityID, "at", now.In(s.loc).Format(time.Kitchen))
		return 0, Event{}, ErrNoActiveClass
	}

	local := now.In(s.loc)
	outcome, evt, err := s.ledger.Append(ctx, Event{
		IdentityID:  identityID,
		SubjectCode: slot.SubjectCode,
		Date:        local.Format(DateLayout),
		MarkedAt:    local,
	})
	if err != nil {
		observability.AttendanceMarks.WithLabelValues("error").Inc()
		return 0, Event{}, fmt.Errorf("append attendance: %w", err)
	}
	observability.AttendanceMarks.WithLabelValues(outcome.String()).Inc()
	slog.Info("attendance confirmed", "identity", identityID, "subject", slot.SubjectCode, "outcome", outcome.String())
	return outcome, evt, nil
}

// Mark appends an explicitly supplied event, defaulting the date and time to
// now. Used by the REST surface where the caller already resolved the subject.
func (s *Service) Mark(ctx context.Context, evt Event) (Outcome, Event, error) {
	now := time.Now().In(s.loc)
	if evt.Date == "" {
		evt.Date = now.Format(DateLayout)
	}
	if evt.MarkedAt.IsZero() {
		evt.MarkedAt = now
	}
	outcome, stored, err := s.ledger.Append(ctx, evt)
	if err != nil {
		return 0, Event{}, err
	}
	observability.AttendanceMarks.WithLabelValues(outcome.String()).Inc()
	return outcome, stored, nil
}

// ByDate returns every event of a calendar day.
func (s *Service) ByDate(ctx context.Context, date string) ([]Event, error) {
	return s.ledger.QueryByDate(ctx, date)
}
