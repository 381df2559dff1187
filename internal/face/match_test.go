package face

import (
	"errors"
	"math"
	"testing"
)

func TestDistanceSymmetric(t *testing.T) {
	a := Embedding{0.1, -0.4, 0.25, 0.9}
	b := Embedding{-0.3, 0.2, 0.05, 0.1}

	ab, err := Distance(a, b)
	if err != nil {
		t.Fatalf("Distance(a, b): %v", err)
	}
	ba, err := Distance(b, a)
	if err != nil {
		t.Fatalf("Distance(b, a): %v", err)
	}
	if ab != ba {
		t.Errorf("Distance not symmetric: %v != %v", ab, ba)
	}

	res, err := Match(a, []Candidate{{ID: "b", Embedding: b}}, 10)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res.Distance != ab {
		t.Errorf("Match distance = %v, want %v", res.Distance, ab)
	}
}

func TestDistanceErrors(t *testing.T) {
	tests := []struct {
		name string
		a, b Embedding
	}{
		{"length mismatch", Embedding{1, 2, 3}, Embedding{1, 2}},
		{"empty left", Embedding{}, Embedding{1}},
		{"empty right", Embedding{1}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Distance(tt.a, tt.b); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Distance() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestMatchThresholdIsStrict(t *testing.T) {
	// sqrt(x*x) is exact, so this pair sits precisely on the threshold.
	probe := Embedding{0, 0, 0}
	candidates := []Candidate{{ID: "edge", Embedding: Embedding{0.6, 0, 0}}}

	res, err := Match(probe, candidates, DefaultThreshold)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res.Distance != 0.6 {
		t.Fatalf("distance = %v, want exactly 0.6", res.Distance)
	}
	if res.Matched() {
		t.Errorf("distance equal to threshold matched %q, want no match", res.IdentityID)
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name       string
		probe      Embedding
		candidates []Candidate
		wantID     string
		wantDist   float64
	}{
		{
			name:       "close match",
			probe:      Embedding{0.1, 0, 0},
			candidates: []Candidate{{ID: "1VE22IS001", Embedding: Embedding{0, 0, 0}}},
			wantID:     "1VE22IS001",
			wantDist:   0.1,
		},
		{
			name:  "picks nearest",
			probe: Embedding{1, 0},
			candidates: []Candidate{
				{ID: "far", Embedding: Embedding{1, 0.5}},
				{ID: "near", Embedding: Embedding{1, 0.2}},
			},
			wantID:   "near",
			wantDist: 0.2,
		},
		{
			name:  "tie keeps first",
			probe: Embedding{0, 0},
			candidates: []Candidate{
				{ID: "first", Embedding: Embedding{0.3, 0}},
				{ID: "second", Embedding: Embedding{0, 0.3}},
			},
			wantID:   "first",
			wantDist: 0.3,
		},
		{
			name:       "too far",
			probe:      Embedding{0, 0},
			candidates: []Candidate{{ID: "x", Embedding: Embedding{1, 0}}},
			wantID:     "",
			wantDist:   1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Match(tt.probe, tt.candidates, 0)
			if err != nil {
				t.Fatalf("Match: %v", err)
			}
			if res.IdentityID != tt.wantID {
				t.Errorf("IdentityID = %q, want %q", res.IdentityID, tt.wantID)
			}
			if math.Abs(res.Distance-tt.wantDist) > 1e-9 {
				t.Errorf("Distance = %v, want %v", res.Distance, tt.wantDist)
			}
		})
	}
}

func TestMatchNoCandidates(t *testing.T) {
	res, err := Match(Embedding{1, 2, 3}, nil, DefaultThreshold)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res.Matched() {
		t.Errorf("matched %q with no candidates", res.IdentityID)
	}
	if !math.IsInf(res.Distance, 1) {
		t.Errorf("Distance = %v, want +Inf", res.Distance)
	}
}

func TestMatchInvalidInput(t *testing.T) {
	tests := []struct {
		name       string
		probe      Embedding
		candidates []Candidate
	}{
		{"empty probe", Embedding{}, []Candidate{{ID: "a", Embedding: Embedding{1}}}},
		{"nan probe", Embedding{math.NaN()}, nil},
		{"dimension mismatch", Embedding{1, 2}, []Candidate{{ID: "a", Embedding: Embedding{1, 2, 3}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Match(tt.probe, tt.candidates, DefaultThreshold); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Match() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestSingleFace(t *testing.T) {
	one := Detection{Embedding: Embedding{0.1, 0.2}}
	tests := []struct {
		name    string
		in      []Detection
		wantErr error
	}{
		{"none", nil, ErrNoFaceDetected},
		{"one", []Detection{one}, nil},
		{"two", []Detection{one, one}, ErrMultipleFacesDetected},
		{"one without embedding", []Detection{{}}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SingleFace(tt.in)
			if !errors.Is(err, tt.wantErr) && !(err == nil && tt.wantErr == nil) {
				t.Errorf("SingleFace() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
