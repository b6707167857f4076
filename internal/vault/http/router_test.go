package http_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/domainvault/internal/vault/coordinator"
	"github.com/aussiebroadwan/domainvault/internal/vault/datemath"
	"github.com/aussiebroadwan/domainvault/internal/vault/derive"
	"github.com/aussiebroadwan/domainvault/internal/vault/domain"
	vaulthttp "github.com/aussiebroadwan/domainvault/internal/vault/http"
	"github.com/aussiebroadwan/domainvault/internal/vault/metrics"
	"github.com/aussiebroadwan/domainvault/internal/vault/portfolio"
	"github.com/aussiebroadwan/domainvault/internal/vault/session"
	"github.com/aussiebroadwan/domainvault/internal/vault/store/drivers/memory"
	"github.com/aussiebroadwan/domainvault/pkg/cryptox"
	"github.com/aussiebroadwan/domainvault/pkg/httpx"
	"github.com/aussiebroadwan/domainvault/pkg/jwtx"
	"github.com/aussiebroadwan/domainvault/pkg/slogx"
)

const (
	testIssuer   = "https://auth.test"
	testAudience = "vault"
)

var testNow = time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

type server struct {
	router *vaulthttp.Router
	coord  *coordinator.Coordinator
	cache  *memory.Cache
	remote *memory.Remote
	signer *jwtx.Ed25519Signer
}

type option func(*vaulthttp.Router, *server)

func withSignIn(r *vaulthttp.Router, s *server) {
	keys := jwtx.NewKeySet()
	if err := keys.AddJWK(s.signer.PublicJWK()); err != nil {
		panic(err)
	}
	r.Keys = keys
	r.Verifier = jwtx.NewVerifier(keys, testIssuer, []string{testAudience})
}

func newServer(t *testing.T, opts ...option) *server {
	t.Helper()

	sealer, err := cryptox.NewSealer([]byte("0123456789abcdef0123456789abcdef"), "provider-password")
	require.NoError(t, err)
	signer, err := jwtx.NewEd25519Signer("k1")
	require.NoError(t, err)

	s := &server{cache: memory.NewCache(), remote: memory.NewRemote(), signer: signer}
	clock := datemath.FixedClock{T: testNow}
	reg := prometheus.NewRegistry()

	s.coord, err = coordinator.New(coordinator.Config{
		Portfolio: portfolio.New(nil),
		Cache:     s.cache,
		Remote:    s.remote,
		Sealer:    sealer,
		Clock:     clock,
		Logger:    slogx.Discard(),
		Metrics:   metrics.New(reg),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.coord.Close(ctx)
	})

	gate := session.NewGate(s.coord, slogx.Discard())
	require.NoError(t, gate.Start(context.Background()))

	s.router = vaulthttp.NewRouter(s.coord, gate, clock, "test", slogx.Discard())
	s.router.Cache = s.cache
	s.router.Gatherer = reg
	s.router.Memo = derive.NewMemo(time.Minute)
	for _, opt := range opts {
		opt(s.router, s)
	}
	s.router.ApplyRoutes()
	return s
}

func (s *server) do(t *testing.T, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *server) token(t *testing.T, scopes ...string) string {
	t.Helper()
	c := jwtx.NewClaims("user-1", testIssuer, []string{testAudience}, scopes, time.Hour, time.Now())
	c.Username = "alice"
	tok, err := s.signer.Sign(c)
	require.NoError(t, err)
	return "Bearer " + tok
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestDomainsCRUD(t *testing.T) {
	t.Parallel()
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/v1/domains",
		`{"name":"Brand-New.com","provider":"GoDaddy","renewalDate":"2026-04-01","price":12.5,"notes":"kept"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	view := body["domain"].(map[string]any)
	created := view["domain"].(map[string]any)
	assert.Equal(t, "brand-new.com", created["name"])
	assert.Equal(t, "kept", created["notes"])
	assert.Equal(t, "expiring", view["status"])
	assert.EqualValues(t, 17, view["daysUntil"])
	assert.Equal(t, false, body["synced"])
	assert.NotContains(t, body, "warning")
	id := created["id"].(string)

	rec = s.do(t, http.MethodPut, "/v1/domains/"+id, `{"price":"20.00"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode(t, rec)["domain"].(map[string]any)["domain"].(map[string]any)
	assert.Equal(t, "20.00", updated["price"])
	assert.Equal(t, "GoDaddy", updated["provider"])

	rec = s.do(t, http.MethodGet, "/v1/domains?q=brand", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["domains"], 1)

	rec = s.do(t, http.MethodGet, "/v1/domains", "")
	assert.Len(t, decode(t, rec)["domains"], 13)

	rec = s.do(t, http.MethodDelete, "/v1/domains/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, decode(t, rec)["id"])

	rec = s.do(t, http.MethodDelete, "/v1/domains/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDomainWriteErrors(t *testing.T) {
	t.Parallel()
	s := newServer(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"empty body", http.MethodPost, "/v1/domains", "", http.StatusBadRequest, "invalid_request"},
		{"not json", http.MethodPost, "/v1/domains", "{", http.StatusBadRequest, "invalid_request"},
		{"bad name", http.MethodPost, "/v1/domains", `{"name":"nope","renewalDate":"2026-01-01","price":"1"}`, http.StatusBadRequest, "invalid_request"},
		{"unknown id", http.MethodPut, "/v1/domains/missing", `{"price":"1"}`, http.StatusNotFound, "not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, tc.method, tc.path, tc.body)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, tc.code, decode(t, rec)["error"])
		})
	}
}

func TestProviderDeleteNeedsConfirmation(t *testing.T) {
	t.Parallel()
	s := newServer(t)

	namecheap := s.coord.Portfolio().ListProviders()[0]

	rec := s.do(t, http.MethodDelete, "/v1/providers/"+namecheap.ID, "")
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "confirmation_required", body["error"])
	assert.Equal(t, coordinator.ProviderDeletePrompt(4), body["prompt"])
	assert.EqualValues(t, 4, body["domainCount"])
	assert.Len(t, s.coord.Portfolio().ListProviders(), 3)

	rec = s.do(t, http.MethodDelete, "/v1/providers/"+namecheap.ID+"?confirm=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, s.coord.Portfolio().ListProviders(), 2)
}

func TestProviderDeleteCountsBySyncedID(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	ctx := context.Background()

	_, err := s.remote.Providers().Save(ctx, "user-1", domain.Provider{Name: "Namecheap"})
	require.NoError(t, err)
	require.NoError(t, s.coord.SignIn(ctx, "user-1"))

	w, err := s.coord.SaveProvider(ctx, domain.Provider{Name: "Porkbun"})
	require.NoError(t, err)
	localID := w.Record.ID
	res := w.Wait(ctx)
	require.True(t, res.Synced)
	require.NotEqual(t, localID, res.ID)

	for _, name := range []string{"one.com", "two.com"} {
		dw, err := s.coord.SaveDomain(ctx, domain.Domain{Name: name, Provider: "Porkbun", RenewalDate: "2026-06-01", Price: "10.00"})
		require.NoError(t, err)
		dw.Wait(ctx)
	}

	rec := s.do(t, http.MethodDelete, "/v1/providers/"+localID, "")
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.EqualValues(t, 2, body["domainCount"])
	assert.Equal(t, coordinator.ProviderDeletePrompt(2), body["prompt"])
}

func TestProviderPasswordsStayHidden(t *testing.T) {
	t.Parallel()
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/v1/providers",
		`{"name":"Porkbun","url":"https://porkbun.com","username":"me","password":"s3cret"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "s3cret")
	assert.NotContains(t, rec.Body.String(), cryptox.SealedPrefix)
	id := decode(t, rec)["provider"].(map[string]any)["id"].(string)

	rec = s.do(t, http.MethodGet, "/v1/providers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = s.do(t, http.MethodGet, "/v1/providers/"+id+"/credentials", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s3cret", decode(t, rec)["password"])
}

func TestProviderViews(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	goDaddy := s.coord.Portfolio().ListProviders()[1]

	rec := s.do(t, http.MethodGet, "/v1/providers/"+goDaddy.ID+"/domains", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["domains"], 4)

	rec = s.do(t, http.MethodGet, "/v1/providers/"+goDaddy.ID+"/spend", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "GoDaddy", body["provider"])
	assert.Equal(t, derive.ProviderSpend(s.coord.Portfolio().ListDomains(), "GoDaddy"), body["total"])

	rec = s.do(t, http.MethodGet, "/v1/providers/nope/spend", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReports(t *testing.T) {
	t.Parallel()
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/v1/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 12, decode(t, rec)["totalDomains"])

	rec = s.do(t, http.MethodGet, "/v1/renewals/urgent?limit=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec), "renewals")

	rec = s.do(t, http.MethodGet, "/v1/renewals/urgent?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec), "notifications")

	rec = s.do(t, http.MethodGet, "/v1/reports/monthly-costs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["months"], 12)

	rec = s.do(t, http.MethodGet, "/v1/reports/providers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["providers"], 3)

	// April 2026 starts on a Wednesday.
	rec = s.do(t, http.MethodGet, "/v1/calendar/2026/4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cells := decode(t, rec)["cells"].([]any)
	require.Len(t, cells, 33)
	assert.Equal(t, true, cells[0].(map[string]any)["padding"])
	assert.Len(t, cells[17].(map[string]any)["domains"], 1)

	rec = s.do(t, http.MethodGet, "/v1/calendar/2026/13", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportCalendar(t *testing.T) {
	t.Parallel()
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/v1/export/calendar", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/calendar"))
	assert.Equal(t, `attachment; filename="domain-renewals.ics"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "BEGIN:VCALENDAR\r\n"))
	assert.Equal(t, 12, strings.Count(rec.Body.String(), "BEGIN:VEVENT"))

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	rec = s.do(t, http.MethodGet, "/v1/export/calendar", "", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())

	s.do(t, http.MethodPost, "/v1/domains", `{"name":"fresh.dev","provider":"Namecheap","renewalDate":"2026-09-01","price":"11.00"}`)
	rec = s.do(t, http.MethodGet, "/v1/export/calendar", "", "If-None-Match", etag)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, etag, rec.Header().Get("ETag"))
}

func TestSessionDisabledWithoutAuth(t *testing.T) {
	t.Parallel()
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/v1/session", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "unauthenticated", decode(t, rec)["state"])
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()
	s := newServer(t, withSignIn)

	rec := s.do(t, http.MethodPost, "/v1/session", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/session", "", "Authorization", s.token(t, "other:scope"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/session", "", "Authorization", s.token(t, "profile:read"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "authenticated", body["state"])
	assert.Equal(t, "alice", body["identity"].(map[string]any)["username"])

	rec = s.do(t, http.MethodDelete, "/v1/session", "", "Authorization", s.token(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "unauthenticated", decode(t, rec)["state"])
	assert.NotEmpty(t, s.coord.Portfolio().ListDomains(), "local portfolio reloaded")
}

func TestSessionLimitedPerUser(t *testing.T) {
	t.Parallel()
	s := newServer(t, withSignIn, func(r *vaulthttp.Router, _ *server) {
		r.Limits.Account = httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Hour, Burst: 1}
	})

	rec := s.do(t, http.MethodPost, "/v1/session", "", "Authorization", s.token(t, "profile:read"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/v1/session", "", "Authorization", s.token(t, "profile:read"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	c := jwtx.NewClaims("user-2", testIssuer, []string{testAudience}, []string{"profile:read"}, time.Hour, time.Now())
	tok, err := s.signer.Sign(c)
	require.NoError(t, err)
	rec = s.do(t, http.MethodPost, "/v1/session", "", "Authorization", "Bearer "+tok)
	assert.Equal(t, http.StatusOK, rec.Code, "another user is not held to the first user's limit")
}

func TestWriteReportsRemoteWarning(t *testing.T) {
	t.Parallel()
	s := newServer(t, withSignIn)
	_, err := s.remote.Providers().Save(context.Background(), "user-1", s.coord.Portfolio().ListProviders()[0])
	require.NoError(t, err)

	rec := s.do(t, http.MethodPost, "/v1/session", "", "Authorization", s.token(t, "profile:read"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	s.remote.SetHook(func(_ context.Context, op memory.Op, _, _ string) error {
		if op == memory.OpSave {
			return errors.New("remote down")
		}
		return nil
	})

	rec = s.do(t, http.MethodPost, "/v1/domains",
		`{"name":"offline.com","provider":"Namecheap","renewalDate":"2026-09-01","price":"9"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, false, body["synced"])
	assert.Contains(t, body["warning"], "remote store unavailable")
}

func TestHealth(t *testing.T) {
	t.Parallel()
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/livez", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	rec = s.do(t, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	s.cache.FailWith(errors.New("disk full"))
	rec = s.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "domainvault_hydrations_total")
}

func TestSwaggerDoc(t *testing.T) {
	t.Parallel()
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/swagger/doc.json", "")
	require.Equal(t, http.StatusOK, rec.Code)

	doc := decode(t, rec)
	assert.Equal(t, "2.0", doc["swagger"])
	assert.Equal(t, "Domain Vault API", doc["info"].(map[string]any)["title"])
	assert.Contains(t, doc["paths"], "/v1/domains")
}
