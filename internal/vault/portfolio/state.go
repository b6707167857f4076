// Package portfolio holds the in-memory Domains and Providers every other
// component reads from. It never touches persistence.
package portfolio

import (
	"slices"
	"sync"

	"github.com/aussiebroadwan/domainvault/internal/vault/domain"
	"github.com/aussiebroadwan/domainvault/pkg/idx"
)

// Snapshot is a consistent copy of the state at one revision.
type Snapshot struct {
	Domains   []domain.Domain
	Providers []domain.Provider
	Revision  uint64
}

// PortfolioState is the entity store. The zero value is not usable; call
// New. Revision increases on every mutation.
type PortfolioState struct {
	mu        sync.RWMutex
	domains   []domain.Domain
	providers []domain.Provider
	revision  uint64
	ids       *idx.Generator
}

// New returns an empty state. A nil generator uses the package default.
func New(ids *idx.Generator) *PortfolioState {
	return &PortfolioState{ids: ids}
}

func (s *PortfolioState) newID() string {
	if s.ids != nil {
		return s.ids.New().String()
	}
	return idx.New().String()
}

func (s *PortfolioState) bump() { s.revision++ }

// Revision reports the current revision.
func (s *PortfolioState) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

func (s *PortfolioState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Domains:   slices.Clone(s.domains),
		Providers: slices.Clone(s.providers),
		Revision:  s.revision,
	}
}

func (s *PortfolioState) ListDomains() []domain.Domain {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.domains)
}

func (s *PortfolioState) ListProviders() []domain.Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.providers)
}

// Domain looks a domain up by id.
func (s *PortfolioState) Domain(id string) (domain.Domain, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.domainIndex(id); i >= 0 {
		return s.domains[i], true
	}
	return domain.Domain{}, false
}

// Provider looks a provider up by id.
func (s *PortfolioState) Provider(id string) (domain.Provider, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.providerIndex(id); i >= 0 {
		return s.providers[i], true
	}
	return domain.Provider{}, false
}

// UpsertDomain replaces the domain with the same id or appends d. An empty
// id is filled with a fresh local id. The stored record is returned.
func (s *PortfolioState) UpsertDomain(d domain.Domain) domain.Domain {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == "" {
		d.ID = s.newID()
	}
	if i := s.domainIndex(d.ID); i >= 0 {
		s.domains[i] = d
	} else {
		s.domains = append(s.domains, d)
	}
	s.bump()
	return d
}

// RemoveDomain deletes by id and reports whether anything was removed.
func (s *PortfolioState) RemoveDomain(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.domainIndex(id)
	if i < 0 {
		return false
	}
	s.domains = slices.Delete(s.domains, i, i+1)
	s.bump()
	return true
}

func (s *PortfolioState) UpsertProvider(p domain.Provider) domain.Provider {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.newID()
	}
	if i := s.providerIndex(p.ID); i >= 0 {
		s.providers[i] = p
	} else {
		s.providers = append(s.providers, p)
	}
	s.bump()
	return p
}

func (s *PortfolioState) RemoveProvider(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.providerIndex(id)
	if i < 0 {
		return false
	}
	s.providers = slices.Delete(s.providers, i, i+1)
	s.bump()
	return true
}

// DomainsForProvider returns domains whose provider equals name exactly,
// in store order.
func (s *PortfolioState) DomainsForProvider(name string) []domain.Domain {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Domain
	for _, d := range s.domains {
		if d.Provider == name {
			out = append(out, d)
		}
	}
	return out
}

// ReplaceAll swaps in a freshly hydrated portfolio.
func (s *PortfolioState) ReplaceAll(domains []domain.Domain, providers []domain.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.domains = slices.Clone(domains)
	s.providers = slices.Clone(providers)
	s.bump()
}

// Clear empties the state on sign-out.
func (s *PortfolioState) Clear() {
	s.ReplaceAll(nil, nil)
}

// RekeyDomain moves a record from a local id to the id the remote store
// assigned. It reports false when oldID is gone or newID is taken.
func (s *PortfolioState) RekeyDomain(oldID, newID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.domainIndex(oldID)
	if i < 0 || s.domainIndex(newID) >= 0 {
		return false
	}
	s.domains[i].ID = newID
	s.bump()
	return true
}

func (s *PortfolioState) RekeyProvider(oldID, newID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.providerIndex(oldID)
	if i < 0 || s.providerIndex(newID) >= 0 {
		return false
	}
	s.providers[i].ID = newID
	s.bump()
	return true
}

func (s *PortfolioState) domainIndex(id string) int {
	return slices.IndexFunc(s.domains, func(d domain.Domain) bool { return d.ID == id })
}

func (s *PortfolioState) providerIndex(id string) int {
	return slices.IndexFunc(s.providers, func(p domain.Provider) bool { return p.ID == id })
}
