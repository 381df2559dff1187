package identity

import (
	"context"
	"sync"
	"time"

	"classattend/internal/face"
)

// MemoryStore keeps identities in registration order.
type MemoryStore struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]Identity
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]Identity)}
}

// Upsert inserts or replaces the identity keyed by ID.
func (s *MemoryStore) Upsert(_ context.Context, ident Identity) error {
	if err := ident.Validate(); err != nil {
		return err
	}
	ident.Embedding = append(face.Embedding(nil), ident.Embedding...)
	if ident.UpdatedAt.IsZero() {
		ident.UpdatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev, exists := s.byID[ident.ID]
	if !exists {
		s.order = append(s.order, ident.ID)
	} else {
		if ident.Name == "" {
			ident.Name = prev.Name
		}
		if ident.PhotoKey == "" {
			ident.PhotoKey = prev.PhotoKey
		}
	}
	s.byID[ident.ID] = ident
	return nil
}

// All returns a snapshot of every reference embedding.
func (s *MemoryStore) All(_ context.Context) ([]face.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]face.Candidate, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, face.Candidate{ID: id, Embedding: s.byID[id].Embedding})
	}
	return out, nil
}

// Get returns the identity or nil when it is not registered.
func (s *MemoryStore) Get(_ context.Context, id string) (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ident, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return &ident, nil
}

// List returns identities without their embeddings.
func (s *MemoryStore) List(_ context.Context) ([]Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Identity, 0, len(s.order))
	for _, id := range s.order {
		ident := s.byID[id]
		ident.Embedding = nil
		out = append(out, ident)
	}
	return out, nil
}
