package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/currex/pkg/authsdk"
	"github.com/aussiebroadwan/currex/pkg/httpx"
)

// readinessTimeout bounds the database ping of /readyz.
const readinessTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves the probe and key discovery endpoints. None of them
// require authentication.
type SystemHandler struct {
	StartTime   time.Time
	Version     string
	DB          Pinger
	SignerReady bool
	Keys        authsdk.JWKSResponse
}

func (h *SystemHandler) health(status string, checks *authsdk.HealthChecks) authsdk.HealthResponse {
	return authsdk.HealthResponse{
		Status:  status,
		Uptime:  time.Since(h.StartTime).Round(time.Second).String(),
		Version: h.Version,
		Checks:  checks,
	}
}

// HandleLivez godoc
//
//	@Summary		Liveness probe
//	@Description	Always 200 while the process is serving requests
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get]
func (h *SystemHandler) HandleLivez(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.health("ok", nil))
}

// HandleReadyz godoc
//
//	@Summary		Readiness probe
//	@Description	Checks the database connection and that a signing key is loaded
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"every check passed"
//	@Failure		503	{object}	authsdk.HealthResponse	"at least one check failed"
//	@Router			/readyz [get]
func (h *SystemHandler) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := &authsdk.HealthChecks{Database: "ok", Signer: "ok"}
	status, code := "ok", http.StatusOK
	fail := func(field *string, msg string) {
		*field = "error: " + msg
		status, code = "degraded", http.StatusServiceUnavailable
	}

	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()
	if err := h.DB.Ping(ctx); err != nil {
		fail(&checks.Database, err.Error())
	}
	if !h.SignerReady {
		fail(&checks.Signer, "no signing key loaded")
	}

	httpx.WriteJSON(w, code, h.health(status, checks))
}

// HandleJWKS godoc
//
//	@Summary		JSON Web Key Set
//	@Description	Public keys for verifying access tokens. Empty when tokens are signed with a shared secret (HS256).
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	map[string]any	"The JSON Web Key Set"
//	@Router			/.well-known/jwks.json [get]
func (h *SystemHandler) HandleJWKS(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.Keys)
}
