// Package metrics provides Prometheus metrics for the auth service.
//
// A nil *Metrics is valid and records nothing, so services can run without
// a registry in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg prometheus.Gatherer

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	credentialChecks *prometheus.CounterVec
	tokensIssued     *prometheus.CounterVec
	tokenRejections  *prometheus.CounterVec
	tokensRevoked    *prometheus.CounterVec
	replayDetections prometheus.Counter
	accessDenied     *prometheus.CounterVec
	sweepDeleted     prometheus.Counter
	registrations    *prometheus.CounterVec
}

// New registers the auth metrics with reg.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "currex_auth_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "currex_auth_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		credentialChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "currex_auth_credential_checks_total",
			Help: "Username and password checks by outcome",
		}, []string{"outcome"}), // "success", "not_found", "inactive", "bad_password"
		tokensIssued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "currex_auth_tokens_issued_total",
			Help: "Tokens issued by type, user category and flow",
		}, []string{"type", "category", "flow"}),
		tokenRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "currex_auth_token_rejections_total",
			Help: "Presented tokens rejected by reason",
		}, []string{"reason"}),
		tokensRevoked: f.NewCounterVec(prometheus.CounterOpts{
			Name: "currex_auth_tokens_revoked_total",
			Help: "Token states revoked by cause",
		}, []string{"cause"}), // "device_rotation", "replay", "user_request"
		replayDetections: f.NewCounter(prometheus.CounterOpts{
			Name: "currex_auth_refresh_replays_total",
			Help: "Revoked refresh tokens presented again",
		}),
		accessDenied: f.NewCounterVec(prometheus.CounterOpts{
			Name: "currex_auth_access_denied_total",
			Help: "Scope checks that denied access by reason",
		}, []string{"reason"}),
		sweepDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "currex_auth_sweep_deleted_total",
			Help: "Expired token states deleted by housekeeping",
		}),
		registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "currex_auth_registrations_total",
			Help: "Client registrations by outcome",
		}, []string{"outcome"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) CredentialCheck(outcome string) {
	if m == nil {
		return
	}
	m.credentialChecks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) TokenIssued(tokenType, category, flow string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(tokenType, category, flow).Inc()
}

func (m *Metrics) TokenRejected(reason string) {
	if m == nil {
		return
	}
	m.tokenRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) TokensRevoked(cause string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.tokensRevoked.WithLabelValues(cause).Add(float64(n))
}

func (m *Metrics) ReplayDetected() {
	if m == nil {
		return
	}
	m.replayDetections.Inc()
}

func (m *Metrics) AccessDenied(reason string) {
	if m == nil {
		return
	}
	m.accessDenied.WithLabelValues(reason).Inc()
}

func (m *Metrics) SweepDeleted(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.sweepDeleted.Add(float64(n))
}

func (m *Metrics) Registration(outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(outcome).Inc()
}

// Middleware records request counts and durations. Paths are labelled by
// route pattern to keep label cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		m.httpRequests.WithLabelValues(r.Method, path, strconv.Itoa(rw.status)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
