// Package registration runs photo-based face registrations as background jobs.
package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrJobNotFound is returned for unknown job ids.
var ErrJobNotFound = errors.New("registration job not found")

// Status is the lifecycle of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// Job is one queued registration.
type Job struct {
	ID         string    `json:"id"`
	IdentityID string    `json:"identity_id"`
	Name       string    `json:"name,omitempty"`
	PhotoKey   string    `json:"photo_key"`
	Status     Status    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StatusStore records job progress for polling clients.
type StatusStore interface {
	Save(ctx context.Context, job Job) error
	Get(ctx context.Context, id string) (Job, error)
}

// MemoryStatus keeps job status in process.
type MemoryStatus struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

func NewMemoryStatus() *MemoryStatus {
	return &MemoryStatus{jobs: make(map[string]Job)}
}

func (m *MemoryStatus) Save(_ context.Context, job Job) error {
	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()
	return nil
}

func (m *MemoryStatus) Get(_ context.Context, id string) (Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return job, nil
}

// RedisStatus keeps job status in Redis with an expiry, so the API and the
// worker see the same view.
type RedisStatus struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStatus(client *redis.Client, ttl time.Duration) *RedisStatus {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStatus{client: client, ttl: ttl}
}

func statusKey(id string) string { return "classattend:registration:" + id }

func (r *RedisStatus) Save(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, statusKey(job.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return nil
}

func (r *RedisStatus) Get(ctx context.Context, id string) (Job, error) {
	data, err := r.client.Get(ctx, statusKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Job{}, ErrJobNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("load job %s: %w", id, err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return Job{}, fmt.Errorf("decode job %s: %w", id, err)
	}
	return job, nil
}
