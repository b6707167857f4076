package coordinator

import (
	"fmt"
	"time"

	"github.com/aussiebroadwan/domainvault/internal/vault/domain"
	"github.com/aussiebroadwan/domainvault/internal/vault/portfolio"
	"github.com/aussiebroadwan/domainvault/internal/vault/store"
	"github.com/aussiebroadwan/domainvault/pkg/cryptox"
)

// entity describes one record kind to the generic write path.
type entity[T any] struct {
	kind     string // singular, for messages and metrics
	prefix   string // record key prefix
	cacheKey string

	get    func(*portfolio.PortfolioState, string) (T, bool)
	list   func(*portfolio.PortfolioState) []T
	upsert func(*portfolio.PortfolioState, T) T
	remove func(*portfolio.PortfolioState, string) bool
	rekey  func(*portfolio.PortfolioState, string, string) bool

	id    func(T) string
	setID func(*T, string)
	merge func(old, update T) (T, error)

	// prepare normalises, validates and stamps a record before it is stored.
	prepare func(*Coordinator, *T, time.Time) error

	repo func(store.RemoteStore) store.Repo[T]
}

var domains = &entity[domain.Domain]{
	kind:     "domain",
	prefix:   "d",
	cacheKey: store.KeyDomains,

	get:    (*portfolio.PortfolioState).Domain,
	list:   (*portfolio.PortfolioState).ListDomains,
	upsert: (*portfolio.PortfolioState).UpsertDomain,
	remove: (*portfolio.PortfolioState).RemoveDomain,
	rekey:  (*portfolio.PortfolioState).RekeyDomain,

	id:    func(d domain.Domain) string { return d.ID },
	setID: func(d *domain.Domain, id string) { d.ID = id },
	merge: domain.MergeDomain,

	prepare: func(_ *Coordinator, d *domain.Domain, now time.Time) error {
		d.Normalize()
		if err := d.Validate(); err != nil {
			return err
		}
		stamp(&d.CreatedAt, &d.UpdatedAt, now)
		return nil
	},

	repo: store.RemoteStore.Domains,
}

var providers = &entity[domain.Provider]{
	kind:     "provider",
	prefix:   "p",
	cacheKey: store.KeyProviders,

	get:    (*portfolio.PortfolioState).Provider,
	list:   (*portfolio.PortfolioState).ListProviders,
	upsert: (*portfolio.PortfolioState).UpsertProvider,
	remove: (*portfolio.PortfolioState).RemoveProvider,
	rekey:  (*portfolio.PortfolioState).RekeyProvider,

	id:    func(p domain.Provider) string { return p.ID },
	setID: func(p *domain.Provider, id string) { p.ID = id },
	merge: domain.MergeProvider,

	prepare: func(c *Coordinator, p *domain.Provider, now time.Time) error {
		p.Normalize()
		if err := p.Validate(); err != nil {
			return err
		}
		if err := c.sealPassword(p); err != nil {
			return err
		}
		stamp(&p.CreatedAt, &p.UpdatedAt, now)
		return nil
	},

	repo: store.RemoteStore.Providers,
}

func stamp(created, updated *string, now time.Time) {
	ts := now.UTC().Format(time.RFC3339)
	if *created == "" {
		*created = ts
	}
	*updated = ts
}

// sealPassword seals a plaintext password in place. Sealed values pass
// through unchanged.
func (c *Coordinator) sealPassword(p *domain.Provider) error {
	if p.Password == "" || cryptox.IsSealed(p.Password) {
		return nil
	}
	sealed, err := c.sealer.Seal(p.Password)
	if err != nil {
		return fmt.Errorf("coordinator: seal password: %w", err)
	}
	p.Password = sealed
	return nil
}
