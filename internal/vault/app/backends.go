package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/domainvault/internal/vault/coordinator"
	"github.com/aussiebroadwan/domainvault/internal/vault/portfolio"
	"github.com/aussiebroadwan/domainvault/internal/vault/store"
	"github.com/aussiebroadwan/domainvault/internal/vault/store/drivers/memory"
	"github.com/aussiebroadwan/domainvault/internal/vault/store/drivers/postgres"
	"github.com/aussiebroadwan/domainvault/internal/vault/store/drivers/redis"
	"github.com/aussiebroadwan/domainvault/internal/vault/store/drivers/sqlite"
	"github.com/aussiebroadwan/domainvault/pkg/cryptox"
)

// sealerInfo binds derived keys to their purpose.
const sealerInfo = "domainvault/provider-password"

// ConfigError marks a failure caused by the configuration itself rather
// than by a backend at runtime.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return e.Err.Error() }

func (e *ConfigError) Unwrap() error { return e.Err }

// OpenCache opens the local cache selected by cfg.CacheDriver and applies
// its migrations.
func OpenCache(ctx context.Context, cfg Config, logger *slog.Logger) (store.LocalCache, error) {
	switch cfg.CacheDriver {
	case "sqlite", "":
		c, err := sqlite.NewCache(cfg.CacheFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
		if err := c.ApplyMigrations(); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to apply cache migrations: %w", err)
		}
		logger.Info("cache migrations applied successfully", "file", cfg.CacheFile)
		return c, nil

	case "redis":
		if cfg.RedisURL == "" {
			return nil, &ConfigError{Err: errors.New("VAULT_REDIS_URL is required for the redis cache")}
		}
		c, err := redis.NewCache(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
		return c, nil

	case "memory":
		logger.Warn("using in-memory cache; data is lost on exit")
		return memory.NewCache(), nil

	default:
		return nil, &ConfigError{Err: fmt.Errorf("unknown cache driver %q", cfg.CacheDriver)}
	}
}

// OpenRemote opens the remote store selected by cfg.RemoteDriver. The
// "none" driver returns a nil store and the vault runs local-only.
func OpenRemote(ctx context.Context, cfg Config, logger *slog.Logger) (store.RemoteStore, error) {
	switch cfg.RemoteDriver {
	case "none", "":
		return nil, nil

	case "postgres":
		if cfg.RemoteURL == "" {
			return nil, &ConfigError{Err: errors.New("VAULT_REMOTE_URL is required for the postgres remote")}
		}
		s, err := postgres.Connect(ctx, cfg.RemoteURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to remote store: %w", err)
		}
		if err := s.ApplyMigrations(); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to apply remote migrations: %w", err)
		}
		logger.Info("remote migrations applied successfully")
		return s, nil

	case "memory":
		return memory.NewRemote(), nil

	default:
		return nil, &ConfigError{Err: fmt.Errorf("unknown remote driver %q", cfg.RemoteDriver)}
	}
}

// OpenSealer loads the master key and derives the provider password
// sealer. With create set a missing key file is generated.
func OpenSealer(cfg Config, create bool) (*cryptox.Sealer, error) {
	master, err := cryptox.LoadMasterKey(cfg.MasterKeyPath, cfg.MasterKey, create)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("failed to load master key: %w", err)}
	}
	return cryptox.NewSealer(master, sealerInfo)
}

// Local is a coordinator hydrated from the local cache only, for commands
// that read the portfolio without serving it.
type Local struct {
	Coord *coordinator.Coordinator
	cache store.LocalCache
}

// OpenLocal opens the configured cache and hydrates an anonymous
// portfolio from it. The master key must already exist.
func OpenLocal(ctx context.Context, cfg Config, logger *slog.Logger) (*Local, error) {
	sealer, err := OpenSealer(cfg, false)
	if err != nil {
		return nil, err
	}

	cache, err := OpenCache(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	coord, err := coordinator.New(coordinator.Config{
		Portfolio: portfolio.New(nil),
		Cache:     cache,
		Sealer:    sealer,
		Logger:    logger,
	})
	if err != nil {
		_ = cache.Close()
		return nil, err
	}
	if err := coord.Start(ctx); err != nil {
		_ = cache.Close()
		return nil, fmt.Errorf("failed to hydrate portfolio: %w", err)
	}
	return &Local{Coord: coord, cache: cache}, nil
}

// Close stops the coordinator and closes the cache.
func (l *Local) Close(ctx context.Context) error {
	return errors.Join(l.Coord.Close(ctx), l.cache.Close())
}
