// Package http is the vault's JSON API.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aussiebroadwan/domainvault/internal/vault/coordinator"
	"github.com/aussiebroadwan/domainvault/internal/vault/datemath"
	"github.com/aussiebroadwan/domainvault/internal/vault/derive"
	"github.com/aussiebroadwan/domainvault/internal/vault/export"
	_ "github.com/aussiebroadwan/domainvault/internal/vault/http/docs"
	"github.com/aussiebroadwan/domainvault/internal/vault/session"
	"github.com/aussiebroadwan/domainvault/internal/vault/store"
	"github.com/aussiebroadwan/domainvault/pkg/httpx"
	"github.com/aussiebroadwan/domainvault/pkg/jwtx"
	"github.com/aussiebroadwan/domainvault/pkg/slogx"
)

// DefaultSyncWait bounds how long a write response waits for the remote
// store before answering without it.
const DefaultSyncWait = 3 * time.Second

// Limits are the rate limit profiles. All but Account apply per client IP;
// Account applies per signed-in user on the session routes.
type Limits struct {
	Read    httpx.RateLimitConfig
	Write   httpx.RateLimitConfig
	Session httpx.RateLimitConfig
	Account httpx.RateLimitConfig
}

// DefaultLimits returns the built-in profiles.
func DefaultLimits() Limits {
	return Limits{
		Read:    httpx.ReadLimit,
		Write:   httpx.WriteLimit,
		Session: httpx.SessionLimit,
		Account: httpx.SessionLimit,
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware
	handler     http.Handler

	coord        *coordinator.Coordinator
	gate         *session.Gate
	clock        datemath.Clock
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	// Optional. A nil Verifier disables sign-in.
	Verifier     jwtx.Verifier
	Keys         *jwtx.KeySet
	SessionScope string

	Cache    store.LocalCache
	Remote   store.RemoteStore
	Gatherer prometheus.Gatherer
	Encoder  *export.Encoder
	Memo     *derive.Memo
	Limits   Limits
	SyncWait time.Duration
}

func NewRouter(
	coord *coordinator.Coordinator,
	gate *session.Gate,
	clock datemath.Clock,
	buildVersion string,
	logger *slog.Logger,
) *Router {
	if clock == nil {
		clock = datemath.SystemClock{}
	}
	r := &Router{
		Mux:          http.NewServeMux(),
		coord:        coord,
		gate:         gate,
		clock:        clock,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		SessionScope: "profile:read",
		Encoder:      export.NewEncoder(""),
		Limits:       DefaultLimits(),
		SyncWait:     DefaultSyncWait,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}
	return r
}

// ApplyRoutes registers every endpoint. Set the optional fields first.
func (r *Router) ApplyRoutes() {
	r.registerDomains()
	r.registerProviders()
	r.registerReports()
	r.registerSession()
	r.registerSystem()

	r.Mux.Handle("GET /swagger/", httpSwagger.Handler())

	r.handler = otelhttp.NewHandler(httpx.Chain(r.Mux, r.middlewares...), "domainvault")
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain. ApplyRoutes must have been called.
//
//	@title			Domain Vault API
//	@version		0.1.0
//	@description	Tracks registered domains, their providers and renewal dates.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/domainvault
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@BasePath					/
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Access token from the auth service. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func (r *Router) read(h http.HandlerFunc) http.Handler {
	return httpx.Chain(h, httpx.RateLimitByIP(r.Limits.Read))
}

func (r *Router) write(h http.HandlerFunc) http.Handler {
	return httpx.Chain(h, httpx.RateLimitByIP(r.Limits.Write))
}

func (r *Router) registerDomains() {
	h := &DomainsHandler{Coord: r.coord, Clock: r.clock, SyncWait: r.SyncWait}

	r.Mux.Handle("GET /v1/domains", r.read(h.HandleList))
	r.Mux.Handle("POST /v1/domains", r.write(h.HandleCreate))
	r.Mux.Handle("PUT /v1/domains/{id}", r.write(h.HandleUpdate))
	r.Mux.Handle("DELETE /v1/domains/{id}", r.write(h.HandleDelete))
}

func (r *Router) registerProviders() {
	h := &ProvidersHandler{Coord: r.coord, Clock: r.clock, SyncWait: r.SyncWait}

	r.Mux.Handle("GET /v1/providers", r.read(h.HandleList))
	r.Mux.Handle("POST /v1/providers", r.write(h.HandleCreate))
	r.Mux.Handle("PUT /v1/providers/{id}", r.write(h.HandleUpdate))
	r.Mux.Handle("DELETE /v1/providers/{id}", r.write(h.HandleDelete))
	r.Mux.Handle("GET /v1/providers/{id}/domains", r.read(h.HandleDomains))
	r.Mux.Handle("GET /v1/providers/{id}/spend", r.read(h.HandleSpend))

	// Plaintext credentials: held to the session limit.
	r.Mux.Handle("GET /v1/providers/{id}/credentials",
		httpx.Chain(http.HandlerFunc(h.HandleCredentials),
			httpx.RateLimitByIP(r.Limits.Session),
		),
	)
}

func (r *Router) registerReports() {
	h := &ReportsHandler{Coord: r.coord, Clock: r.clock, Memo: r.Memo, Encoder: r.Encoder}

	r.Mux.Handle("GET /v1/dashboard", r.read(h.HandleDashboard))
	r.Mux.Handle("GET /v1/renewals/urgent", r.read(h.HandleUrgent))
	r.Mux.Handle("GET /v1/notifications", r.read(h.HandleNotifications))
	r.Mux.Handle("GET /v1/reports/monthly-costs", r.read(h.HandleMonthlyCosts))
	r.Mux.Handle("GET /v1/reports/providers", r.read(h.HandleProviderReport))
	r.Mux.Handle("GET /v1/calendar/{year}/{month}", r.read(h.HandleCalendar))
	r.Mux.Handle("GET /v1/export/calendar", r.read(h.HandleExport))
}

func (r *Router) registerSession() {
	h := &SessionHandler{Gate: r.gate}

	r.Mux.Handle("GET /v1/session", r.read(h.HandleGet))

	if r.Verifier == nil {
		disabled := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			httpx.WriteError(w, http.StatusNotImplemented, "sign_in_disabled", "No auth service is configured")
		})
		r.Mux.Handle("POST /v1/session", disabled)
		r.Mux.Handle("DELETE /v1/session", disabled)
		return
	}

	r.Mux.Handle("POST /v1/session",
		httpx.Chain(http.HandlerFunc(h.HandleSignIn),
			httpx.RateLimitByIP(r.Limits.Session),
			httpx.AuthnMiddleware(r.Verifier),
			httpx.RateLimitByUser(r.Limits.Account),
			httpx.RequireAnyScope(r.SessionScope),
		),
	)
	r.Mux.Handle("DELETE /v1/session",
		httpx.Chain(http.HandlerFunc(h.HandleSignOut),
			httpx.RateLimitByIP(r.Limits.Session),
			httpx.AuthnMiddleware(r.Verifier),
			httpx.RateLimitByUser(r.Limits.Account),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.Limits.Read),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.Cache, r.Remote, r.Verifier != nil, r.Keys),
			httpx.RateLimitByIP(r.Limits.Read),
		),
	)

	gatherer := r.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
