package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"classattend/internal/api"
	"classattend/internal/api/ws"
	"classattend/internal/attendance"
	"classattend/internal/auth"
	"classattend/internal/bootstrap"
	"classattend/internal/config"
	"classattend/internal/faceclient"
	"classattend/internal/httpmiddleware"
	"classattend/internal/identity"
	"classattend/internal/observability"
	"classattend/internal/registration"
	"classattend/internal/session"
	"classattend/internal/store"
	"classattend/internal/timetable"
)

func main() {
	cfg := config.Load()
	observability.SetupLogger(cfg.LogLevel, cfg.LogFmt)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Set Gin mode based on environment
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		slog.Error("http server failed", "error", err)
		os.Exit(1)
	}
}

func runHTTP(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	stores, err := bootstrap.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	index := timetable.NewIndex(stores.Timetable, loc)
	if err := bootstrap.LoadTimetable(ctx, cfg, index); err != nil {
		return err
	}

	checks := map[string]api.HealthCheck{}
	if c := stores.Check(); c != nil {
		checks["postgres"] = api.HealthCheck(c)
	}

	var redisClient *store.Redis
	if bootstrap.NeedsRedis(cfg) {
		redisClient = store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer redisClient.Close()
	}
	q, queueCheck, closeQueue, err := bootstrap.OpenQueue(ctx, cfg, redisClient)
	if err != nil {
		return err
	}
	defer closeQueue()
	if queueCheck != nil {
		checks["queue"] = api.HealthCheck(queueCheck)
	}

	photoStore, photoCheck, err := bootstrap.OpenPhotos(ctx, cfg)
	if err != nil {
		return err
	}
	if photoCheck != nil {
		checks["photos"] = api.HealthCheck(photoCheck)
	}

	detector := faceclient.New(cfg.FaceServiceURL, cfg.FaceSkip)
	checks["face"] = detector.Health

	idents := identity.NewService(stores.Identities)
	att := attendance.NewService(stores.Ledger, index, loc)
	jobs := bootstrap.JobStatus(cfg, redisClient)

	if cfg.QueueBackend == "memory" {
		proc := registration.NewProcessor(photoStore, detector, idents, jobs)
		go func() {
			if err := proc.Run(ctx, q); err != nil {
				slog.Error("registration processor stopped", "error", err)
			}
		}()
	}

	hub := ws.NewHub()
	sessions := session.NewManager(session.Config{
		SampleEvery: cfg.SampleEvery,
		Hold:        cfg.Hold,
		Cooldown:    cfg.Cooldown,
		Threshold:   cfg.MatchThreshold,
	}, session.Deps{
		Candidates: stores.Identities,
		Confirmer:  att,
		Detector:   detector,
		Notify:     hub.Publish,
	})
	defer sessions.CloseAll()

	r := api.NewRouter(api.RouterConfig{
		Identities: idents,
		Attendance: att,
		Timetable:  index,
		Sessions:   sessions,
		Hub:        hub,
		Issuer:     auth.NewIssuer(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL),
		Limiter:    httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin),
		Submitter:  registration.NewSubmitter(photoStore, jobs, q),
		Jobs:       jobs,
		Checks:     checks,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", srv.Addr, "storage", cfg.StorageBackend, "queue", cfg.QueueBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}
	slog.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server forced shutdown", "error", err)
	}
	slog.Info("server exited")
	return nil
}
