package http

import (
	"net/http"
	"time"

	"github.com/sigilauth/sigil/internal/auth/store"
	"github.com/sigilauth/sigil/pkg/authapi"
	"github.com/sigilauth/sigil/pkg/httpx"
	"github.com/sigilauth/sigil/pkg/jwtx"
)

// ReadyzHandler godoc
//
//	@Summary		Readiness Probe
//	@Description	Checks the dependencies the service cannot serve traffic without.
//	@Description	Reports per-check status for the database and the token signer.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authapi.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authapi.HealthResponse	"one or more checks failed"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, st store.Store, keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &authapi.HealthChecks{Database: "ok", Signer: "ok"}
		code := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			code = http.StatusServiceUnavailable
		}

		// A service with no signing keys can verify nothing and issue
		// nothing, so it is not ready.
		if !keys.IsReady() {
			checks.Signer = "error: no keys loaded"
			code = http.StatusServiceUnavailable
		}

		status := "ok"
		if code != http.StatusOK {
			status = "degraded"
		}

		httpx.WriteJSON(w, code, authapi.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
