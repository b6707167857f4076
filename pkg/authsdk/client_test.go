package authsdk_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/domainvault/pkg/authsdk"
	"github.com/aussiebroadwan/domainvault/pkg/httpx"
	"github.com/aussiebroadwan/domainvault/pkg/jwtx"
)

func TestFetchJWKS(t *testing.T) {
	t.Parallel()

	signer, err := jwtx.NewEd25519Signer("key-1")
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+authsdk.JWKSPath, func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, jwtx.JWKS{Keys: []jwtx.JWK{signer.PublicJWK()}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := authsdk.NewSDKClient(srv.URL + "/")
	jwks, err := client.FetchJWKS(context.Background())
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "key-1", jwks.Keys[0].Kid)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.ResetFromJWKS(jwks))
	require.True(t, keys.IsReady())
}

func TestErrorResponses(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/readyz":
			httpx.WriteError(w, http.StatusServiceUnavailable, "not_ready", "database down")
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	t.Cleanup(srv.Close)

	client := authsdk.NewSDKClient(srv.URL)

	t.Run("typed body", func(t *testing.T) {
		_, err := client.GetReadiness(context.Background())
		var apiErr *authsdk.APIError
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
		require.Equal(t, "not_ready", apiErr.Code)
		require.Equal(t, "database down", apiErr.Description)
	})

	t.Run("empty body", func(t *testing.T) {
		_, err := client.FetchJWKS(context.Background())
		var apiErr *authsdk.APIError
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
		require.Equal(t, "unexpected_status", apiErr.Code)
	})
}
