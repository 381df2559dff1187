package attendance

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DateLayout is the calendar-day format used for event dates.
const DateLayout = "2006-01-02"

// Event is one attendance mark.
type Event struct {
	ID          string    `json:"id"`
	IdentityID  string    `json:"usn"`
	SubjectCode string    `json:"subject"`
	Date        string    `json:"date"`
	MarkedAt    time.Time `json:"marked_at"`
}

// Key is the dedup key of an event.
type Key struct {
	IdentityID  string
	SubjectCode string
	Date        string
}

func (e Event) Key() Key {
	return Key{IdentityID: e.IdentityID, SubjectCode: e.SubjectCode, Date: e.Date}
}

// Outcome is the result of an append.
type Outcome int

const (
	Marked Outcome = iota + 1
	AlreadyMarked
)

func (o Outcome) String() string {
	switch o {
	case Marked:
		return "marked"
	case AlreadyMarked:
		return "already_marked"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

func (o Outcome) MarshalJSON() ([]byte, error) { return json.Marshal(o.String()) }

// ErrInvalidEvent wraps malformed events and dates.
var ErrInvalidEvent = errors.New("invalid attendance event")

// ParseDate validates a YYYY-MM-DD calendar date.
func ParseDate(s string) (string, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: date %q, want YYYY-MM-DD", ErrInvalidEvent, s)
	}
	return d.Format(DateLayout), nil
}
