package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/currex/internal/auth/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.CredentialCheck("success")
	m.TokenIssued("access", "API_CLIENT", "grant")
	m.TokenRejected("expired")
	m.TokensRevoked("replay", 3)
	m.ReplayDetected()
	m.AccessDenied("insufficient_scope")
	m.SweepDeleted(5)
	m.Registration("created")

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)
}

func TestMetricsExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.TokenIssued("access", "API_CLIENT", "grant")
	m.TokenIssued("refresh", "API_CLIENT", "grant")
	m.TokensRevoked("device_rotation", 2)
	m.TokensRevoked("user_request", 0)
	m.SweepDeleted(4)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, r *http.Request) {})
	mux.Handle("GET /metrics", m.Handler())
	h := m.Middleware(mux)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `currex_auth_tokens_issued_total{category="API_CLIENT",flow="grant",type="refresh"} 1`)
	require.Contains(t, body, `currex_auth_tokens_revoked_total{cause="device_rotation"} 2`)
	require.Contains(t, body, "currex_auth_sweep_deleted_total 4")
	require.Contains(t, body, `currex_auth_http_requests_total{method="GET",path="GET /livez",status="200"} 1`)
	require.NotContains(t, body, `cause="user_request"`)
}
