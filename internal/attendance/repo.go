package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Repository persists the ledger in Postgres. The UNIQUE (identity_id,
// subject_code, day) constraint makes Append safe across processes.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Append inserts the event, or returns the stored one when the key exists.
func (r *Repository) Append(ctx context.Context, evt Event) (Outcome, Event, error) {
	evt, err := prepare(evt)
	if err != nil {
		return 0, Event{}, err
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_events (id, identity_id, subject_code, day, marked_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (identity_id, subject_code, day) DO NOTHING
		RETURNING id
	`, evt.ID, evt.IdentityID, evt.SubjectCode, evt.Date, evt.MarkedAt)
	var id string
	if err := row.Scan(&id); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, Event{}, fmt.Errorf("insert attendance: %w", err)
		}
		existing, err := r.get(ctx, evt.Key())
		if err != nil {
			return 0, Event{}, err
		}
		return AlreadyMarked, existing, nil
	}
	return Marked, evt, nil
}

func (r *Repository) get(ctx context.Context, k Key) (Event, error) {
	var evt Event
	err := r.db.QueryRowContext(ctx, `
		SELECT id, identity_id, subject_code, to_char(day, 'YYYY-MM-DD'), marked_at
		FROM attendance_events
		WHERE identity_id = $1 AND subject_code = $2 AND day = $3
	`, k.IdentityID, k.SubjectCode, k.Date).Scan(&evt.ID, &evt.IdentityID, &evt.SubjectCode, &evt.Date, &evt.MarkedAt)
	if err != nil {
		return Event{}, fmt.Errorf("get attendance: %w", err)
	}
	return evt, nil
}

// QueryByDate returns the day's events in insertion order.
func (r *Repository) QueryByDate(ctx context.Context, date string) ([]Event, error) {
	date, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, identity_id, subject_code, to_char(day, 'YYYY-MM-DD'), marked_at
		FROM attendance_events
		WHERE day = $1
		ORDER BY seq
	`, date)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var res []Event
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.IdentityID, &evt.SubjectCode, &evt.Date, &evt.MarkedAt); err != nil {
			return nil, err
		}
		res = append(res, evt)
	}
	return res, rows.Err()
}
