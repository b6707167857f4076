//go:build integration

package vault_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/domainvault/internal/vault/store/drivers/postgres"
	"github.com/aussiebroadwan/domainvault/pkg/authsdk"
	"github.com/aussiebroadwan/domainvault/pkg/idx"
)

func TestReadyz(t *testing.T) {
	v := setupVault(t, startPostgres(t))

	health, err := authsdk.NewSDKClient(v.baseURL).GetReadiness(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, map[string]string{"cache": "ok", "remote": "ok", "keys": "ok"}, health.Checks)
}

func TestAnonymousPortfolioIsSeededLocally(t *testing.T) {
	v := setupVault(t, startPostgres(t))

	domains := v.domains(t)
	require.Len(t, domains, 12)
	for _, d := range domains {
		assert.True(t, idx.IsLocal(d.ID), d.ID)
	}

	var session struct {
		State string `json:"state"`
	}
	require.Equal(t, http.StatusOK, v.call(t, http.MethodGet, "/v1/session", nil, "", &session))
	assert.Equal(t, "unauthenticated", session.State)
}

func TestSignInSyncsWithPostgres(t *testing.T) {
	remoteURL := startPostgres(t)
	v := setupVault(t, remoteURL)

	var session struct {
		State   string `json:"state"`
		Warning string `json:"warning"`
	}
	require.Equal(t, http.StatusOK, v.call(t, http.MethodPost, "/v1/session", nil, v.token(t), &session))
	assert.Equal(t, "authenticated", session.State)
	assert.Empty(t, session.Warning)

	// An empty remote is seeded and every sample record is pushed up.
	require.Eventually(t, func() bool {
		for _, d := range v.domains(t) {
			if idx.IsLocal(d.ID) {
				return false
			}
		}
		return true
	}, 15*time.Second, 100*time.Millisecond)

	var created struct {
		Domain struct {
			Domain domainRecord `json:"domain"`
		} `json:"domain"`
		Synced bool `json:"synced"`
	}
	status := v.call(t, http.MethodPost, "/v1/domains", map[string]any{
		"name":        "e2e-example.dev",
		"provider":    "Namecheap",
		"renewalDate": "2027-01-31",
		"price":       "14.50",
		"autoRenew":   true,
	}, "", &created)
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, created.Synced)
	assert.False(t, idx.IsLocal(created.Domain.Domain.ID))

	store, err := postgres.Connect(context.Background(), remoteURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	remote, err := store.Domains().List(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, remote, 13)

	names := make([]string, 0, len(remote))
	for _, d := range remote {
		names = append(names, d.Name)
	}
	assert.Contains(t, names, "e2e-example.dev")

	t.Run("a second device sees the same portfolio", func(t *testing.T) {
		other := setupVault(t, remoteURL)
		require.Equal(t, http.StatusOK, other.call(t, http.MethodPost, "/v1/session", nil, other.token(t), nil))

		domains := other.domains(t)
		assert.Len(t, domains, 13)
		for _, d := range domains {
			assert.False(t, idx.IsLocal(d.ID), d.ID)
		}
	})

	t.Run("deletes reach the remote", func(t *testing.T) {
		var deleted struct {
			Synced bool `json:"synced"`
		}
		require.Equal(t, http.StatusOK,
			v.call(t, http.MethodDelete, "/v1/domains/"+created.Domain.Domain.ID, nil, "", &deleted))
		assert.True(t, deleted.Synced)

		remote, err := store.Domains().List(context.Background(), userID)
		require.NoError(t, err)
		assert.Len(t, remote, 12)
	})
}

func TestSignInRejectsForeignTokens(t *testing.T) {
	v := setupVault(t, startPostgres(t))
	stranger := setupVault(t, startPostgres(t))

	status := v.call(t, http.MethodPost, "/v1/session", nil, stranger.token(t), nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}
