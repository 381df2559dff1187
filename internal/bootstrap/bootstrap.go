// Package bootstrap wires configured backends for the binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"classattend/internal/attendance"
	"classattend/internal/config"
	"classattend/internal/identity"
	"classattend/internal/photos"
	"classattend/internal/queue"
	"classattend/internal/registration"
	"classattend/internal/store"
	"classattend/internal/timetable"
)

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

// Stores are the persistence backends selected by STORAGE_BACKEND.
type Stores struct {
	DB         *store.DB
	Identities identity.Store
	Ledger     attendance.Ledger
	Timetable  timetable.Store
}

// OpenStores connects the configured storage backend. Postgres is migrated
// before use.
func OpenStores(ctx context.Context, cfg config.App) (*Stores, error) {
	if cfg.StorageBackend != "postgres" {
		slog.Warn("using in-memory storage; data is lost on restart")
		return &Stores{
			Identities: identity.NewMemoryStore(),
			Ledger:     attendance.NewMemoryLedger(),
		}, nil
	}

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if _, err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Stores{
		DB:         db,
		Identities: identity.NewRepository(db.Client),
		Ledger:     attendance.NewRepository(db.Client),
		Timetable:  timetable.NewRepository(db.Client),
	}, nil
}

// Close releases the database, if any.
func (s *Stores) Close() {
	if s != nil && s.DB != nil {
		_ = s.DB.Close()
	}
}

// Check returns the database health check, or nil in memory mode.
func (s *Stores) Check() Check {
	if s.DB == nil {
		return nil
	}
	return func(ctx context.Context) error {
		if !s.DB.Healthy(ctx) {
			return errors.New("postgres unreachable")
		}
		return nil
	}
}

// LoadTimetable restores the persisted timetable and, when it is empty and
// TIMETABLE_FILE is set, seeds it from the file.
func LoadTimetable(ctx context.Context, cfg config.App, index *timetable.Index) error {
	if err := index.Load(ctx); err != nil {
		return err
	}
	if len(index.Slots()) > 0 || cfg.TimetableFile == "" {
		return nil
	}
	slots, err := timetable.ReadFile(cfg.TimetableFile)
	if err != nil {
		return err
	}
	if err := index.Replace(ctx, slots); err != nil {
		return fmt.Errorf("seed timetable from %s: %w", cfg.TimetableFile, err)
	}
	slog.Info("timetable seeded", "file", cfg.TimetableFile, "slots", len(slots))
	return nil
}

// OpenQueue builds the QUEUE_BACKEND queue. The returned closer is never nil.
func OpenQueue(ctx context.Context, cfg config.App, rdb *store.Redis) (queue.Queue, Check, func(), error) {
	switch cfg.QueueBackend {
	case "redis":
		return queue.NewRedisQueue(rdb.Client, ""), redisCheck(rdb), func() {}, nil
	case "nats":
		q, err := queue.NewNATSQueue(ctx, cfg.NATSURL, "registration-worker")
		if err != nil {
			return nil, nil, func() {}, err
		}
		return q, func(context.Context) error { return q.Ping() }, q.Close, nil
	default:
		return queue.NewInMemory(64), nil, func() {}, nil
	}
}

func redisCheck(rdb *store.Redis) Check {
	return func(ctx context.Context) error {
		if !rdb.Healthy(ctx) {
			return errors.New("redis unreachable")
		}
		return nil
	}
}

// OpenPhotos connects MinIO, or falls back to process memory when no
// endpoint is configured and the queue is in-process.
func OpenPhotos(ctx context.Context, cfg config.App) (photos.Store, Check, error) {
	if cfg.MinIOEndpoint == "" {
		if cfg.QueueBackend != "memory" {
			return nil, nil, errors.New("MINIO_ENDPOINT is required when the queue is shared between processes")
		}
		slog.Warn("MINIO_ENDPOINT not set; keeping registration photos in memory")
		return photos.NewMemory(), nil, nil
	}
	s, err := photos.NewMinIOStore(photos.MinIOConfig{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		Bucket:    cfg.MinIOBucket,
		UseSSL:    cfg.MinIOUseSSL,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := s.EnsureBucket(ctx); err != nil {
		return nil, nil, err
	}
	return s, s.Ping, nil
}

// JobStatus picks where registration job status lives. Separate worker
// processes need Redis.
func JobStatus(cfg config.App, rdb *store.Redis) registration.StatusStore {
	if cfg.QueueBackend == "memory" || rdb == nil {
		return registration.NewMemoryStatus()
	}
	return registration.NewRedisStatus(rdb.Client, 0)
}

// NeedsRedis reports whether any configured component uses Redis.
func NeedsRedis(cfg config.App) bool {
	return cfg.QueueBackend != "memory"
}
