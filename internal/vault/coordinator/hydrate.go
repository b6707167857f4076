package coordinator

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/aussiebroadwan/domainvault/internal/vault/domain"
	"github.com/aussiebroadwan/domainvault/internal/vault/store"
	"github.com/aussiebroadwan/domainvault/pkg/cryptox"
)

// pendingWrites are records hydration changed that still have to reach the
// remote store.
type pendingWrites struct {
	domains   []domain.Domain
	providers []domain.Provider
}

func (p pendingWrites) dispatch(c *Coordinator) {
	for _, rec := range p.providers {
		key, version := c.touch(providers.prefix, rec.ID, false)
		dispatchSave(c, providers, key, version, rec)
	}
	for _, rec := range p.domains {
		key, version := c.touch(domains.prefix, rec.ID, false)
		dispatchSave(c, domains, key, version, rec)
	}
}

// hydrateLocalLocked loads the entity store from the cache. Each key missing
// from the cache is seeded on its own and the seed written back. Records
// that fail to decode are moved to quarantine and the key rewritten without
// them, so a later start does not quarantine them again. Callers hold
// localMu.
func (c *Coordinator) hydrateLocalLocked(ctx context.Context) error {
	dl, err := loadCache[domain.Domain](ctx, c, store.KeyDomains, store.KeyQuarantineDomains, domains.kind)
	if err != nil {
		return err
	}
	pl, err := loadCache[domain.Provider](ctx, c, store.KeyProviders, store.KeyQuarantineProviders, providers.kind)
	if err != nil {
		return err
	}
	ds, ps := dl.recs, pl.recs
	haveDomains, haveProviders := dl.found, pl.found

	now := c.now()
	if !haveProviders {
		ps = DefaultProviders(c.ids, now)
	}
	if !haveDomains {
		ds = SampleDomains(c.ids, c.rnd, now, ps)
	}

	dirtyDomains := fillIDs(c, ds, domains)
	dirtyProviders := fillIDs(c, ps, providers)
	sealed, err := c.sealLegacy(ps)
	if err != nil {
		return err
	}

	c.state.ReplaceAll(ds, ps)
	if !haveProviders || pl.rejected || dirtyProviders || len(sealed) > 0 {
		persist(ctx, c, providers)
	}
	if !haveDomains || dl.rejected || dirtyDomains {
		persist(ctx, c, domains)
	}

	c.metrics.IncHydration("local")
	logHydrated(c, "local", len(ds), len(ps))
	return nil
}

// hydrateRemoteLocked loads the owner's records from the remote store and
// refreshes the cache with them. An owner with no records at all gets the
// seed portfolio, returned as pending creates. Callers hold localMu.
func (c *Coordinator) hydrateRemoteLocked(ctx context.Context, userID string) (pendingWrites, error) {
	var (
		ds []domain.Domain
		ps []domain.Provider
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ds, err = callRemote(gctx, c, "list", domains.kind, func(ctx context.Context) ([]domain.Domain, error) {
			return c.remote.Domains().List(ctx, userID)
		})
		return err
	})
	g.Go(func() error {
		var err error
		ps, err = callRemote(gctx, c, "list", providers.kind, func(ctx context.Context) ([]domain.Provider, error) {
			return c.remote.Providers().List(ctx, userID)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return pendingWrites{}, err
	}

	ds = sanitize[domain.Domain](ctx, c, ds, store.KeyQuarantineDomains, domains.kind)
	ps = sanitize[domain.Provider](ctx, c, ps, store.KeyQuarantineProviders, providers.kind)

	var pending pendingWrites
	if len(ds) == 0 && len(ps) == 0 {
		now := c.now()
		ps = DefaultProviders(c.ids, now)
		ds = SampleDomains(c.ids, c.rnd, now, ps)
		pending = pendingWrites{domains: ds, providers: ps}
	} else {
		sealed, err := c.sealLegacy(ps)
		if err != nil {
			return pendingWrites{}, err
		}
		pending.providers = sealed
	}

	c.state.ReplaceAll(ds, ps)
	persist(ctx, c, domains)
	persist(ctx, c, providers)

	c.metrics.IncHydration("remote")
	logHydrated(c, "remote", len(ds), len(ps))
	return pending, nil
}

func logHydrated(c *Coordinator, source string, nd, np int) {
	c.log.Info("portfolio hydrated", "source", source, "domains", nd, "providers", np)
}

// cacheLoad is one decoded cache key. found is false only when the key was
// never written. rejected reports that something went to quarantine.
type cacheLoad[T any] struct {
	recs     []T
	found    bool
	rejected bool
}

// loadCache reads and decodes one cache key. A corrupt value counts as found
// and empty, with the value kept in quarantine.
func loadCache[T any, PT store.Record[T]](ctx context.Context, c *Coordinator, key, quarantineKey, kind string) (cacheLoad[T], error) {
	value, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		return cacheLoad[T]{}, fmt.Errorf("coordinator: read %s: %w", key, err)
	}
	if !ok {
		return cacheLoad[T]{}, nil
	}

	recs, rejected, err := store.DecodeRecords[T, PT](value, c.now())
	if err != nil {
		c.log.Error("local cache value is unreadable", "key", key, "error", err)
	}
	c.quarantine(ctx, quarantineKey, kind, rejected)
	return cacheLoad[T]{recs: recs, found: true, rejected: len(rejected) > 0}, nil
}

// sanitize drops malformed remote records into quarantine.
func sanitize[T any, PT store.Record[T]](ctx context.Context, c *Coordinator, recs []T, quarantineKey, kind string) []T {
	at := c.now().UTC().Format(time.RFC3339)

	out := recs[:0]
	var rejected []store.Rejected
	for _, rec := range recs {
		p := PT(&rec)
		p.Normalize()
		if err := p.Check(); err != nil {
			raw, _ := json.Marshal(rec)
			rejected = append(rejected, store.Rejected{Raw: raw, Reason: err.Error(), At: at})
			continue
		}
		out = append(out, rec)
	}
	c.quarantine(ctx, quarantineKey, kind, rejected)
	return out
}

func (c *Coordinator) quarantine(ctx context.Context, key, kind string, rejected []store.Rejected) {
	if len(rejected) == 0 {
		return
	}
	c.metrics.AddQuarantined(kind, len(rejected))
	c.log.Warn("records quarantined", "kind", kind, "count", len(rejected), "key", key)
	if err := store.Quarantine(context.WithoutCancel(ctx), c.cache, key, rejected); err != nil {
		c.metrics.IncCacheWriteFailure()
		c.log.Error("quarantine write failed", "key", key, "error", err)
	}
}

// fillIDs gives records without an id a local one.
func fillIDs[T any](c *Coordinator, recs []T, e *entity[T]) bool {
	dirty := false
	for i := range recs {
		if e.id(recs[i]) == "" {
			e.setID(&recs[i], c.ids.New().String())
			dirty = true
		}
	}
	return dirty
}

// sealLegacy seals plaintext passwords left by older versions and returns
// the providers it changed.
func (c *Coordinator) sealLegacy(ps []domain.Provider) ([]domain.Provider, error) {
	var changed []domain.Provider
	for i := range ps {
		if ps[i].Password == "" || cryptox.IsSealed(ps[i].Password) {
			continue
		}
		if err := c.sealPassword(&ps[i]); err != nil {
			return nil, err
		}
		changed = append(changed, ps[i])
	}
	return changed, nil
}
