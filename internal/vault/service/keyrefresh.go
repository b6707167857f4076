package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/domainvault/pkg/jwtx"
)

// JWKSFetcher is satisfied by authsdk.SDKClient.
type JWKSFetcher interface {
	FetchJWKS(ctx context.Context) (jwtx.JWKS, error)
}

// KeyRefresher reloads the verification keys from the auth service.
type KeyRefresher struct {
	Fetcher JWKSFetcher
	Keys    *jwtx.KeySet
	Logger  *slog.Logger
}

func NewKeyRefresher(f JWKSFetcher, keys *jwtx.KeySet, logger *slog.Logger) *KeyRefresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KeyRefresher{Fetcher: f, Keys: keys, Logger: logger}
}

func (k *KeyRefresher) Name() string { return "jwks-refresh" }

// Run replaces the key set. An empty or unparseable set keeps the old keys.
func (k *KeyRefresher) Run(ctx context.Context) error {
	jwks, err := k.Fetcher.FetchJWKS(ctx)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	if len(jwks.Keys) == 0 {
		return errors.New("fetch jwks: empty key set")
	}
	if err := k.Keys.ResetFromJWKS(jwks); err != nil {
		return fmt.Errorf("load jwks: %w", err)
	}
	k.Logger.Debug("verification keys refreshed", "keys", len(jwks.Keys))
	return nil
}
