package session

import (
	"encoding/json"
	"fmt"
	"time"

	"classattend/internal/attendance"
	"classattend/internal/face"
)

// Kind enumerates the session states.
type Kind int

const (
	// Idle waits for a face.
	Idle Kind = iota
	// Holding has matched one identity and is counting down to the mark.
	// Samples are not matched while holding.
	Holding
	// Unmatched saw a single face that is not registered.
	Unmatched
)

func (k Kind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Holding:
		return "holding"
	case Unmatched:
		return "unmatched"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

// State is the session's position in the state machine. IdentityID, Since
// and Distance are only set while Holding.
type State struct {
	Kind       Kind      `json:"kind"`
	IdentityID string    `json:"identity_id,omitempty"`
	Since      time.Time `json:"since,omitempty"`
	Distance   float64   `json:"distance,omitempty"`
}

func idle() State { return State{Kind: Idle} }

func holding(id string, since time.Time, distance float64) State {
	return State{Kind: Holding, IdentityID: id, Since: since, Distance: distance}
}

// Hints surfaced to the caller alongside an update.
const (
	HintRegisterFirst = "register_first"
	HintMultipleFaces = "multiple_faces"
	HintNoActiveClass = "no_active_class"
)

// Update is published on every state change and every confirmation.
type Update struct {
	SessionID string            `json:"session_id"`
	State     State             `json:"state"`
	Faces     int               `json:"faces"`
	Box       *face.Box         `json:"box,omitempty"`
	Hint      string            `json:"hint,omitempty"`
	Outcome   string            `json:"outcome,omitempty"`
	Event     *attendance.Event `json:"event,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Notifier receives updates. It must not block.
type Notifier func(Update)
