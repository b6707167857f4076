package coordinator

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aussiebroadwan/domainvault/internal/vault/datemath"
	"github.com/aussiebroadwan/domainvault/internal/vault/domain"
	"github.com/aussiebroadwan/domainvault/pkg/idx"
)

// SampleDomainCount is how many example domains a fresh portfolio gets.
const SampleDomainCount = 12

var defaultProviders = []struct{ name, url string }{
	{"Namecheap", "https://www.namecheap.com"},
	{"GoDaddy", "https://www.godaddy.com"},
	{"Google Domains", "https://domains.google"},
}

// DefaultProviders returns the registrars a fresh portfolio starts with.
func DefaultProviders(ids *idx.Generator, now time.Time) []domain.Provider {
	out := make([]domain.Provider, 0, len(defaultProviders))
	for _, p := range defaultProviders {
		rec := domain.Provider{ID: ids.New().String(), Name: p.name, URL: p.url}
		stamp(&rec.CreatedAt, &rec.UpdatedAt, now)
		out = append(out, rec)
	}
	return out
}

// SampleDomains returns example1.com through example12.com. The n-th renews
// n months from now; prices fall between 8 and 28 and providers rotate
// through provs.
func SampleDomains(ids *idx.Generator, rnd *rand.Rand, now time.Time, provs []domain.Provider) []domain.Domain {
	names := make([]string, 0, len(provs))
	for _, p := range provs {
		names = append(names, p.Name)
	}
	if len(names) == 0 {
		for _, p := range defaultProviders {
			names = append(names, p.name)
		}
	}

	out := make([]domain.Domain, 0, SampleDomainCount)
	for i := 1; i <= SampleDomainCount; i++ {
		price := decimal.NewFromFloat(8 + rnd.Float64()*20)
		rec := domain.Domain{
			ID:          ids.New().String(),
			Name:        fmt.Sprintf("example%d.com", i),
			Provider:    names[(i-1)%len(names)],
			RenewalDate: datemath.Today(datemath.AddMonths(now, i)),
			Price:       price.StringFixed(2),
			AutoRenew:   rnd.IntN(2) == 1,
		}
		stamp(&rec.CreatedAt, &rec.UpdatedAt, now)
		out = append(out, rec)
	}
	return out
}
