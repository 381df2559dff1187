package identity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"classattend/internal/face"
	"classattend/internal/observability"
)

// Service applies the registration policy on top of a Store.
type Service struct {
	store Store
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Store exposes the underlying store for matching snapshots.
func (s *Service) Store() Store { return s.store }

// Register stores the embedding of the single face in detections. Zero or
// several faces fail without touching the store.
func (s *Service) Register(ctx context.Context, id, name, photoKey string, detections []face.Detection) (Identity, error) {
	det, err := face.SingleFace(detections)
	if err != nil {
		observability.Registrations.WithLabelValues(outcomeLabel(err)).Inc()
		return Identity{}, err
	}
	ident := Identity{
		ID:        id,
		Name:      name,
		Embedding: det.Embedding,
		PhotoKey:  photoKey,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.store.Upsert(ctx, ident); err != nil {
		observability.Registrations.WithLabelValues(outcomeLabel(err)).Inc()
		return Identity{}, err
	}
	observability.Registrations.WithLabelValues("registered").Inc()
	slog.Info("identity registered", "id", id, "dims", len(det.Embedding))
	return ident, nil
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "registered"
	case errors.Is(err, face.ErrNoFaceDetected):
		return "no_face"
	case errors.Is(err, face.ErrMultipleFacesDetected):
		return "multiple_faces"
	case errors.Is(err, face.ErrInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}
