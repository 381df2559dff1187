package timetable

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository stores the timetable in Postgres. Replace runs in a single
// transaction so readers never observe a half-written timetable.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Replace deletes every slot and inserts the new set.
func (r *Repository) Replace(ctx context.Context, slots []Slot) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM timetable_slots`); err != nil {
		return fmt.Errorf("clear timetable: %w", err)
	}
	for i, s := range slots {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO timetable_slots (position, subject_code, subject_name, day_of_week, start_minute, end_minute)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, i, s.SubjectCode, s.SubjectName, int(s.Day), int(s.Start), int(s.End))
		if err != nil {
			return fmt.Errorf("insert slot %s: %w", s, err)
		}
	}
	return tx.Commit()
}

// Load returns the stored timetable in insertion order.
func (r *Repository) Load(ctx context.Context) ([]Slot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT subject_code, subject_name, day_of_week, start_minute, end_minute
		FROM timetable_slots ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("query timetable: %w", err)
	}
	defer rows.Close()

	var out []Slot
	for rows.Next() {
		var (
			s               Slot
			day, start, end int
		)
		if err := rows.Scan(&s.SubjectCode, &s.SubjectName, &day, &start, &end); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		s.Day, s.Start, s.End = Day(day), Clock(start), Clock(end)
		out = append(out, s)
	}
	return out, rows.Err()
}
