package api

import (
	"context"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"classattend/internal/api/ws"
	"classattend/internal/attendance"
	"classattend/internal/auth"
	"classattend/internal/httpmiddleware"
	"classattend/internal/identity"
	"classattend/internal/registration"
	"classattend/internal/session"
	"classattend/internal/timetable"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type RouterConfig struct {
	Identities *identity.Service
	Attendance *attendance.Service
	Timetable  *timetable.Index
	Sessions   *session.Manager
	Hub        *ws.Hub
	Issuer     *auth.Issuer
	Limiter    *httpmiddleware.TokenBucket

	// Submitter and Jobs are nil when photo registration is not configured.
	Submitter *registration.Submitter
	Jobs      registration.StatusStore

	Checks map[string]HealthCheck
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware("/healthz", "/metrics"))

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AddAllowHeaders("Authorization")
	r.Use(cors.New(corsCfg))
	r.Use(securityHeaders())

	sys := &systemHandler{checks: cfg.Checks}
	r.GET("/healthz", sys.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Anonymous callers are limited per IP. Kiosk routes are limited after
	// KioskAuth so each device gets its own bucket behind a shared NAT.
	public := r.Group("")
	if cfg.Limiter != nil {
		public.Use(cfg.Limiter.GinMiddleware())
	}

	ids := &identityHandler{svc: cfg.Identities, submitter: cfg.Submitter, jobs: cfg.Jobs}
	public.POST("/identities", ids.upsert)
	public.GET("/identities", ids.list)
	public.GET("/identities/embeddings", ids.embeddings)
	public.GET("/identities/:id", ids.get)
	public.POST("/identities/register", ids.register)
	public.POST("/identities/:id/photo", ids.uploadPhoto)
	public.GET("/registrations/:job", ids.job)

	att := &attendanceHandler{svc: cfg.Attendance}
	public.POST("/attendance", att.mark)
	public.GET("/attendance/:date", att.byDate)
	public.GET("/attendance/:date/csv", att.csv)
	public.GET("/attendance/:date/report", att.report)

	tt := &timetableHandler{index: cfg.Timetable}
	public.POST("/timetable", tt.replace)
	public.GET("/timetable", tt.get)
	public.GET("/timetable/current", tt.current)

	kiosks := &kioskHandler{issuer: cfg.Issuer}
	public.POST("/v1/kiosks/register", kiosks.register)
	public.POST("/v1/kiosks/refresh", kiosks.refresh)

	sess := &sessionHandler{manager: cfg.Sessions}
	authed := r.Group("/v1", auth.KioskAuth(cfg.Issuer))
	if cfg.Limiter != nil {
		authed.Use(cfg.Limiter.GinMiddleware())
	}
	authed.POST("/sessions", sess.open)
	authed.GET("/sessions/:id", sess.get)
	authed.POST("/sessions/:id/samples", sess.sample)
	authed.POST("/sessions/:id/frames", sess.frame)
	authed.POST("/sessions/:id/reset", sess.reset)
	authed.DELETE("/sessions/:id", sess.close)
	authed.GET("/ws", cfg.Hub.HandleWS)

	return r
}
