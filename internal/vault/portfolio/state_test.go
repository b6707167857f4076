package portfolio_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/domainvault/internal/vault/domain"
	"github.com/aussiebroadwan/domainvault/internal/vault/portfolio"
)

func TestUpsertAndRemove(t *testing.T) {
	t.Parallel()

	s := portfolio.New(nil)

	a := s.UpsertDomain(domain.Domain{Name: "a.com", Provider: "p"})
	require.NotEmpty(t, a.ID)
	b := s.UpsertDomain(domain.Domain{Name: "b.com", Provider: "q"})

	a.Price = "5"
	s.UpsertDomain(a)

	list := s.ListDomains()
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID, "replace keeps position")
	assert.Equal(t, "5", list[0].Price)
	assert.Equal(t, b.ID, list[1].ID)

	assert.True(t, s.RemoveDomain(a.ID))
	assert.False(t, s.RemoveDomain(a.ID), "second remove is a no-op")
	assert.Len(t, s.ListDomains(), 1)
}

func TestListIsACopy(t *testing.T) {
	t.Parallel()

	s := portfolio.New(nil)
	s.UpsertProvider(domain.Provider{ID: "1", Name: "Namecheap"})

	list := s.ListProviders()
	list[0].Name = "changed"

	p, ok := s.Provider("1")
	require.True(t, ok)
	assert.Equal(t, "Namecheap", p.Name)
}

func TestDomainsForProvider(t *testing.T) {
	t.Parallel()

	s := portfolio.New(nil)
	s.UpsertDomain(domain.Domain{ID: "1", Name: "a.com", Provider: "GoDaddy"})
	s.UpsertDomain(domain.Domain{ID: "2", Name: "b.com", Provider: "godaddy"})
	s.UpsertDomain(domain.Domain{ID: "3", Name: "c.com", Provider: "GoDaddy"})

	got := s.DomainsForProvider("GoDaddy")
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "3", got[1].ID)
}

func TestRekeyAndRevision(t *testing.T) {
	t.Parallel()

	s := portfolio.New(nil)
	start := s.Revision()

	s.UpsertDomain(domain.Domain{ID: "local", Name: "a.com"})
	require.True(t, s.RekeyDomain("local", "remote"))
	require.False(t, s.RekeyDomain("local", "remote"))

	_, ok := s.Domain("remote")
	assert.True(t, ok)
	assert.Greater(t, s.Revision(), start)

	snap := s.Snapshot()
	s.Clear()
	assert.Len(t, snap.Domains, 1)
	assert.Empty(t, s.ListDomains())
	assert.Greater(t, s.Revision(), snap.Revision)
}

func TestConcurrentUpserts(t *testing.T) {
	t.Parallel()

	s := portfolio.New(nil)
	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			s.UpsertDomain(domain.Domain{Name: "x.com"})
		})
	}
	wg.Wait()
	assert.Len(t, s.ListDomains(), 50)
}
