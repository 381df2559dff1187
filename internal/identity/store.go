package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"classattend/internal/face"
)

// Identity is a registered student and their reference embedding.
type Identity struct {
	ID        string         `json:"id"`
	Name      string         `json:"name,omitempty"`
	Embedding face.Embedding `json:"embedding,omitempty"`
	PhotoKey  string         `json:"photo_key,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Validate checks the fields required for an upsert.
func (i Identity) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return fmt.Errorf("%w: identity id required", face.ErrInvalidInput)
	}
	return i.Embedding.Validate()
}

// Store holds reference embeddings. Registrations are permanent, so there is
// no delete.
type Store interface {
	Upsert(ctx context.Context, ident Identity) error
	All(ctx context.Context) ([]face.Candidate, error)
	Get(ctx context.Context, id string) (*Identity, error)
	List(ctx context.Context) ([]Identity, error)
}
