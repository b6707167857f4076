package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/aussiebroadwan/domainvault/internal/vault/domain"
	"github.com/aussiebroadwan/domainvault/internal/vault/store"
)

// Op names a remote call for failure injection.
type Op string

const (
	OpList   Op = "list"
	OpSave   Op = "save"
	OpDelete Op = "delete"
)

// Hook runs before every remote call. Returning an error fails the call.
// It may block to simulate a slow network.
type Hook func(ctx context.Context, op Op, collection, id string) error

// Remote is an in-memory store.RemoteStore that assigns UUIDs on insert,
// like the postgres driver.
type Remote struct {
	mu   sync.RWMutex
	hook Hook

	domains   *collection[domain.Domain]
	providers *collection[domain.Provider]
}

var _ store.RemoteStore = (*Remote)(nil)

func NewRemote() *Remote {
	r := &Remote{}
	r.domains = newCollection(r, "domains",
		func(d domain.Domain) string { return d.ID },
		func(d *domain.Domain, id, owner string) {
			d.ID = id
			d.UserID = owner
		},
	)
	r.providers = newCollection(r, "providers",
		func(p domain.Provider) string { return p.ID },
		func(p *domain.Provider, id, _ string) { p.ID = id },
	)
	return r
}

// SetHook installs h, or removes the current hook when h is nil.
func (r *Remote) SetHook(h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hook = h
}

func (r *Remote) before(ctx context.Context, op Op, coll, id string) error {
	r.mu.RLock()
	h := r.hook
	r.mu.RUnlock()
	if h != nil {
		if err := h(ctx, op, coll, id); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (r *Remote) Domains() store.Repo[domain.Domain]     { return r.domains }
func (r *Remote) Providers() store.Repo[domain.Provider] { return r.providers }

func (r *Remote) ApplyMigrations() error { return nil }

func (r *Remote) Ping(ctx context.Context) error {
	return r.before(ctx, OpList, "", "")
}

func (r *Remote) Close() error { return nil }

type row[T any] struct {
	owner string
	rec   T
}

type collection[T any] struct {
	parent *Remote
	name   string
	idOf   func(T) string
	stamp  func(rec *T, id, owner string)

	mu   sync.Mutex
	rows []row[T]
}

func newCollection[T any](parent *Remote, name string, idOf func(T) string, stamp func(*T, string, string)) *collection[T] {
	return &collection[T]{parent: parent, name: name, idOf: idOf, stamp: stamp}
}

func (c *collection[T]) List(ctx context.Context, userID string) ([]T, error) {
	if err := c.parent.before(ctx, OpList, c.name, ""); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []T
	for _, r := range c.rows {
		if r.owner == userID {
			out = append(out, r.rec)
		}
	}
	return out, nil
}

func (c *collection[T]) Save(ctx context.Context, userID string, rec T) (T, error) {
	if err := c.parent.before(ctx, OpSave, c.name, c.idOf(rec)); err != nil {
		var zero T
		return zero, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.idOf(rec)
	if i := c.index(userID, id); i >= 0 {
		c.stamp(&rec, id, userID)
		c.rows[i].rec = rec
		return rec, nil
	}

	c.stamp(&rec, uuid.NewString(), userID)
	c.rows = append(c.rows, row[T]{owner: userID, rec: rec})
	return rec, nil
}

func (c *collection[T]) Delete(ctx context.Context, userID, id string) error {
	if err := c.parent.before(ctx, OpDelete, c.name, id); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(userID, id)
	if i < 0 {
		return store.ErrNotFound
	}
	c.rows = slices.Delete(c.rows, i, i+1)
	return nil
}

// Len reports how many records all owners hold.
func (c *collection[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rows)
}

func (c *collection[T]) index(owner, id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(c.rows, func(r row[T]) bool {
		return r.owner == owner && c.idOf(r.rec) == id
	})
}

// DomainCount and ProviderCount report stored records across all owners.
func (r *Remote) DomainCount() int   { return r.domains.Len() }
func (r *Remote) ProviderCount() int { return r.providers.Len() }
