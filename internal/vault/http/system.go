package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/domainvault/internal/vault/store"
	"github.com/aussiebroadwan/domainvault/pkg/authsdk"
	"github.com/aussiebroadwan/domainvault/pkg/httpx"
	"github.com/aussiebroadwan/domainvault/pkg/jwtx"
)

// LivezHandler always answers 200 while the process is up.
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := authsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		}
		httpx.WriteJSON(w, http.StatusOK, response)
	}
}

// ReadyzHandler checks the backends. Only the local cache is required; a
// remote store or key set that is down leaves the vault usable and is
// reported as degraded with a 200.
func ReadyzHandler(
	startTime time.Time,
	version string,
	cache store.LocalCache,
	remote store.RemoteStore,
	signIn bool,
	keys *jwtx.KeySet,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		checks := map[string]string{}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if cache != nil {
			checks["cache"] = "ok"
			if err := cache.Ping(ctx); err != nil {
				checks["cache"] = "error: " + err.Error()
				overallStatus = "unavailable"
				statusCode = http.StatusServiceUnavailable
			}
		}

		if remote != nil {
			checks["remote"] = "ok"
			if err := remote.Ping(ctx); err != nil {
				checks["remote"] = "error: " + err.Error()
				if statusCode == http.StatusOK {
					overallStatus = "degraded"
				}
			}
		}

		if signIn {
			checks["keys"] = "ok"
			if keys == nil || !keys.IsReady() {
				checks["keys"] = "error: no keys loaded"
				if statusCode == http.StatusOK {
					overallStatus = "degraded"
				}
			}
		}

		response := authsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		}
		httpx.WriteJSON(w, statusCode, response)
	}
}
