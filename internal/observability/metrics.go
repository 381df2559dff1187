package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classattend",
		Name:      "registrations_total",
		Help:      "Face registrations by outcome",
	}, []string{"outcome"})

	SamplesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classattend",
		Name:      "session_samples_total",
		Help:      "Session samples by result",
	}, []string{"result"})

	MatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "classattend",
		Name:      "match_duration_seconds",
		Help:      "Time spent matching one probe against the embedding store",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
	})

	AttendanceMarks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classattend",
		Name:      "attendance_marks_total",
		Help:      "Attendance confirmations by outcome",
	}, []string{"outcome"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "classattend",
		Name:      "active_sessions",
		Help:      "Number of open camera sessions",
	})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "classattend",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})

	RegistrationJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classattend",
		Name:      "registration_jobs_total",
		Help:      "Queued registration jobs by final status",
	}, []string{"status"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "classattend",
		Name:      "rate_limited_requests_total",
		Help:      "Requests rejected by the rate limiter",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "classattend",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)
