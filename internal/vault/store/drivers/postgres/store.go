// Package postgres is the remote store: one JSONB document per record,
// scoped by owner, in a shared PostgreSQL database.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aussiebroadwan/domainvault/internal/vault/domain"
	"github.com/aussiebroadwan/domainvault/internal/vault/store"
)

type Store struct {
	pool *pgxpool.Pool
}

var _ store.RemoteStore = (*Store)(nil)

// Connect opens a pool against url and pings it.
func Connect(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Domains() store.Repo[domain.Domain] {
	return &repo[domain.Domain]{
		pool:  s.pool,
		table: "domains",
		idOf:  func(d domain.Domain) string { return d.ID },
		stamp: func(d *domain.Domain, id, owner string) {
			d.ID = id
			d.UserID = owner
		},
	}
}

func (s *Store) Providers() store.Repo[domain.Provider] {
	return &repo[domain.Provider]{
		pool:  s.pool,
		table: "providers",
		idOf:  func(p domain.Provider) string { return p.ID },
		stamp: func(p *domain.Provider, id, _ string) { p.ID = id },
	}
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// withTx runs fn in a transaction, committing when it returns nil.
func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx) // no-op after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
