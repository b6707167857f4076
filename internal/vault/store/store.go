package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/domainvault/internal/vault/domain"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrCorrupt  = errors.New("store: corrupt value")
)

// Cache keys.
const (
	KeyDomains             = "domains"
	KeyProviders           = "providers"
	KeyQuarantineDomains   = "quarantine.domains"
	KeyQuarantineProviders = "quarantine.providers"
)

// LocalCache is the synchronous key/value store the portfolio falls back to.
// Every key holds a JSON document as text. Drivers: sqlite, redis, memory.
type LocalCache interface {
	// Get reports ok=false for a key that was never set.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error

	Ping(ctx context.Context) error
	Close() error
}

// RemoteStore is the authoritative multi-tenant store. Every call is scoped
// to one owner. Drivers: postgres, memory.
type RemoteStore interface {
	Domains() Repo[domain.Domain]
	Providers() Repo[domain.Provider]

	ApplyMigrations() error
	Ping(ctx context.Context) error
	Close() error
}

// Repo is one remote collection.
type Repo[T any] interface {
	// List returns the owner's records, oldest first.
	List(ctx context.Context, userID string) ([]T, error)

	// Save updates the record with rec's id when the owner has one, and
	// otherwise inserts it under a new remote id. The stored record,
	// carrying its remote id, is returned.
	Save(ctx context.Context, userID string, rec T) (T, error)

	// Delete removes a record. A missing id is ErrNotFound.
	Delete(ctx context.Context, userID, id string) error
}
