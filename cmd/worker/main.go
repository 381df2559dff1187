package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"classattend/internal/bootstrap"
	"classattend/internal/config"
	"classattend/internal/faceclient"
	"classattend/internal/identity"
	"classattend/internal/observability"
	"classattend/internal/registration"
	"classattend/internal/store"
)

// Worker consumes registration jobs: photo -> detector -> identity store.
func main() {
	cfg := config.Load()
	observability.SetupLogger(cfg.LogLevel, cfg.LogFmt)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := run(cfg); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.App) error {
	if cfg.QueueBackend == "memory" {
		return errors.New("the in-memory queue runs inside the api process; set QUEUE_BACKEND to redis or nats")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutdown signal received")
		cancel()
	}()

	stores, err := bootstrap.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	q, _, closeQueue, err := bootstrap.OpenQueue(ctx, cfg, redisClient)
	if err != nil {
		return err
	}
	defer closeQueue()

	photoStore, _, err := bootstrap.OpenPhotos(ctx, cfg)
	if err != nil {
		return err
	}

	detector := faceclient.New(cfg.FaceServiceURL, cfg.FaceSkip)
	if !cfg.FaceSkip {
		if err := detector.Health(ctx); err != nil {
			slog.Warn("face service not available; jobs will fail until it is", "error", err)
		} else {
			slog.Info("face service connected")
		}
	}

	proc := registration.NewProcessor(
		photoStore,
		detector,
		identity.NewService(stores.Identities),
		bootstrap.JobStatus(cfg, redisClient),
	)
	return proc.Run(ctx, q)
}
