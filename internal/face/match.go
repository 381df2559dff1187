package face

import (
	"errors"
	"fmt"
	"math"
)

// DefaultThreshold is the largest Euclidean distance (exclusive) at which a
// probe is accepted as the same person. Lowering it trades false accepts for
// false rejects; 0.6 is the operating point of 128-d face descriptors.
const DefaultThreshold = 0.6

// ErrInvalidInput reports a malformed embedding or a dimension mismatch.
var ErrInvalidInput = errors.New("invalid input")

// Embedding is a fixed-length face descriptor produced by the detector.
type Embedding []float64

// Validate checks that the embedding is non-empty and finite.
func (e Embedding) Validate() error {
	if len(e) == 0 {
		return fmt.Errorf("%w: empty embedding", ErrInvalidInput)
	}
	for i, v := range e {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: embedding[%d] is not a finite number", ErrInvalidInput, i)
		}
	}
	return nil
}

// Candidate is a known identity's reference embedding.
type Candidate struct {
	ID        string    `json:"id"`
	Embedding Embedding `json:"embedding"`
}

// Result is the outcome of a match. IdentityID is empty when nothing matched.
type Result struct {
	IdentityID string  `json:"identity_id,omitempty"`
	Distance   float64 `json:"distance"`
}

// Matched reports whether the result names an identity.
func (r Result) Matched() bool { return r.IdentityID != "" }

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Embedding) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, fmt.Errorf("%w: empty embedding", ErrInvalidInput)
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: length mismatch %d != %d", ErrInvalidInput, len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// Match compares probe against every candidate and returns the closest one
// if its distance is strictly below threshold. A threshold <= 0 selects
// DefaultThreshold. Ties keep the earliest candidate.
func Match(probe Embedding, candidates []Candidate, threshold float64) (Result, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if err := probe.Validate(); err != nil {
		return Result{}, err
	}

	best := Result{Distance: math.Inf(1)}
	bestID := ""
	for _, c := range candidates {
		d, err := Distance(probe, c.Embedding)
		if err != nil {
			return Result{}, fmt.Errorf("candidate %s: %w", c.ID, err)
		}
		if d < best.Distance {
			best.Distance = d
			bestID = c.ID
		}
	}
	if best.Distance < threshold {
		best.IdentityID = bestID
	}
	return best, nil
}
