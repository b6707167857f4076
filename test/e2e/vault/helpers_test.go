//go:build integration

package vault_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/aussiebroadwan/domainvault/internal/vault/app"
	"github.com/aussiebroadwan/domainvault/pkg/authsdk"
	"github.com/aussiebroadwan/domainvault/pkg/httpx"
	"github.com/aussiebroadwan/domainvault/pkg/jwtx"
)

/*
 * End-to-end fixture: a real Postgres remote in a container, a stub auth
 * service publishing one Ed25519 key, and the full vault application
 * served over httptest.
 */

const (
	issuer   = "e2e-auth"
	audience = "domainvault"
	userID   = "user-e2e"
)

var relaxed = httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}

type vault struct {
	baseURL   string
	remoteURL string
	signer    *jwtx.Ed25519Signer
	client    *http.Client
}

// startPostgres runs a throwaway Postgres and returns its connection URL.
func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("vault"),
		tcpostgres.WithUsername("vault"),
		tcpostgres.WithPassword("vault"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return url
}

// startIssuer serves a JWKS for signer the way the auth service does.
func startIssuer(t *testing.T, signer *jwtx.Ed25519Signer) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+authsdk.JWKSPath, func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, jwtx.JWKS{Keys: []jwtx.JWK{signer.PublicJWK()}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

// setupVault starts the whole stack. remoteURL may be shared between
// vaults to simulate a second device.
func setupVault(t *testing.T, remoteURL string) *vault {
	t.Helper()

	signer, err := jwtx.NewEd25519Signer("e2e-key-001")
	require.NoError(t, err)

	cfg := app.LoadConfig()
	cfg.Env = "test"
	cfg.LogLevel = "error"
	cfg.CacheDriver = "sqlite"
	cfg.CacheFile = filepath.Join(t.TempDir(), "vault.db")
	cfg.RemoteDriver = "postgres"
	cfg.RemoteURL = remoteURL
	cfg.MasterKey = "e2e-master-key-0123456789abcdef"
	cfg.AuthURL = startIssuer(t, signer)
	cfg.AuthIssuer = issuer
	cfg.AuthAudience = []string{audience}
	cfg.Limits.Read, cfg.Limits.Write, cfg.Limits.Session = relaxed, relaxed, relaxed

	application, err := app.New(cfg)
	require.NoError(t, err)
	require.NoError(t, application.Start(context.Background()))

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		srv.Close()
		if err := application.Shutdown(); err != nil {
			t.Logf("shutdown: %v", err)
		}
	})

	return &vault{baseURL: srv.URL, remoteURL: remoteURL, signer: signer, client: srv.Client()}
}

func (v *vault) token(t *testing.T) string {
	t.Helper()
	c := jwtx.NewClaims(userID, issuer, []string{audience}, []string{"profile:read"}, time.Hour, time.Now())
	c.Username = "e2e"
	tok, err := v.signer.Sign(c)
	require.NoError(t, err)
	return tok
}

// call sends a JSON request and decodes the response into out when given.
func (v *vault) call(t *testing.T, method, path string, body any, bearer string, out any) int {
	t.Helper()

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(t.Context(), method, v.baseURL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := v.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type domainRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	RenewalDate string `json:"renewalDate"`
}

type domainList struct {
	Domains []struct {
		Domain domainRecord `json:"domain"`
	} `json:"domains"`
}

func (v *vault) domains(t *testing.T) []domainRecord {
	t.Helper()
	var list domainList
	require.Equal(t, http.StatusOK, v.call(t, http.MethodGet, "/v1/domains", nil, "", &list))
	out := make([]domainRecord, 0, len(list.Domains))
	for _, d := range list.Domains {
		out = append(out, d.Domain)
	}
	return out
}
