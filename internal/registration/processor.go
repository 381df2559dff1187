package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"classattend/internal/face"
	"classattend/internal/identity"
	"classattend/internal/observability"
	"classattend/internal/photos"
	"classattend/internal/queue"
)

// Detector turns an image into face detections.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]face.Detection, error)
}

// Submitter stores a photo and queues its registration.
type Submitter struct {
	photos photos.Store
	status StatusStore
	queue  queue.Queue
}

func NewSubmitter(p photos.Store, status StatusStore, q queue.Queue) *Submitter {
	return &Submitter{photos: p, status: status, queue: q}
}

// Submit validates and stores the photo, then enqueues a job for it.
func (s *Submitter) Submit(ctx context.Context, identityID, name string, photo []byte) (Job, error) {
	if strings.TrimSpace(identityID) == "" {
		return Job{}, fmt.Errorf("%w: identity id required", face.ErrInvalidInput)
	}
	ct, err := photos.Validate(photo)
	if err != nil {
		return Job{}, fmt.Errorf("%w: %v", face.ErrInvalidInput, err)
	}

	now := time.Now().UTC()
	job := Job{
		ID:         uuid.NewString(),
		IdentityID: identityID,
		Name:       name,
		PhotoKey:   photos.NewKey(identityID),
		Status:     StatusQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.photos.Put(ctx, job.PhotoKey, photo, ct); err != nil {
		return Job{}, fmt.Errorf("store photo: %w", err)
	}
	if err := s.status.Save(ctx, job); err != nil {
		return Job{}, err
	}
	msg, err := queue.NewMessage(queue.TypeRegistration, job)
	if err != nil {
		return Job{}, err
	}
	if err := s.queue.Publish(ctx, msg); err != nil {
		return Job{}, fmt.Errorf("enqueue registration: %w", err)
	}
	slog.Info("registration queued", "job", job.ID, "identity", identityID)
	return job, nil
}

// Processor executes queued registrations.
type Processor struct {
	photos   photos.Store
	detector Detector
	idents   *identity.Service
	status   StatusStore
}

func NewProcessor(p photos.Store, d Detector, idents *identity.Service, status StatusStore) *Processor {
	return &Processor{photos: p, detector: d, idents: idents, status: status}
}

// Handle runs one job to completion. Policy failures (no face, several
// faces) finish the job as failed and are not returned as errors.
func (p *Processor) Handle(ctx context.Context, msg queue.Message) error {
	if msg.Type != queue.TypeRegistration {
		return fmt.Errorf("unexpected message type %q", msg.Type)
	}
	var job Job
	if err := msg.Decode(&job); err != nil {
		return err
	}

	job.Status = StatusProcessing
	p.save(ctx, job)

	err := p.run(ctx, job)
	job.UpdatedAt = time.Now().UTC()
	switch {
	case err == nil:
		job.Status = StatusDone
	case errors.Is(err, face.ErrNoFaceDetected):
		job.Status, job.Reason = StatusFailed, "no_face"
	case errors.Is(err, face.ErrMultipleFacesDetected):
		job.Status, job.Reason = StatusFailed, "multiple_faces"
	default:
		job.Status, job.Reason, job.Error = StatusFailed, "error", err.Error()
	}
	p.save(ctx, job)
	observability.RegistrationJobs.WithLabelValues(string(job.Status)).Inc()

	if job.Reason == "error" {
		slog.Error("registration failed", "job", job.ID, "identity", job.IdentityID, "error", err)
		return err
	}
	slog.Info("registration finished", "job", job.ID, "identity", job.IdentityID, "status", job.Status, "reason", job.Reason)
	return nil
}

func (p *Processor) run(ctx context.Context, job Job) error {
	data, err := p.photos.Get(ctx, job.PhotoKey)
	if err != nil {
		return fmt.Errorf("load photo: %w", err)
	}
	dets, err := p.detector.Detect(ctx, data)
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}
	_, err = p.idents.Register(ctx, job.IdentityID, job.Name, job.PhotoKey, dets)
	return err
}

func (p *Processor) save(ctx context.Context, job Job) {
	if err := p.status.Save(ctx, job); err != nil {
		slog.Warn("save job status", "job", job.ID, "error", err)
	}
}

// Run consumes q until ctx ends.
func (p *Processor) Run(ctx context.Context, q queue.Queue) error {
	msgs, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	slog.Info("registration processor started")
	for msg := range msgs {
		// Errors are logged in Handle; the loop keeps going.
		_ = p.Handle(ctx, msg)
	}
	return nil
}
