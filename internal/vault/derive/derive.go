// Package derive computes everything the dashboard, notifications, reports
// and calendar show. Every function is pure over a slice of domains and the
// current instant. A domain whose renewal date does not parse is left out of
// date-driven results instead of failing the whole computation.
package derive

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aussiebroadwan/domainvault/internal/vault/datemath"
	"github.com/aussiebroadwan/domainvault/internal/vault/domain"
)

// DefaultLimit caps the urgent list and notifications.
const DefaultLimit = 5

// Annotate pairs each domain with its days-until and status.
func Annotate(domains []domain.Domain, now time.Time) []domain.DomainView {
	out := make([]domain.DomainView, 0, len(domains))
	for _, d := range domains {
		out = append(out, View(d, now))
	}
	return out
}

// View annotates a single domain.
func View(d domain.Domain, now time.Time) domain.DomainView {
	days, err := datemath.DaysUntil(d.RenewalDate, now)
	if err != nil {
		return domain.DomainView{Domain: d, Status: datemath.StatusUnknown}
	}
	return domain.DomainView{Domain: d, DaysUntil: &days, Status: datemath.StatusFor(days)}
}

// DashboardStats aggregates the headline numbers. Expired domains count as
// expiring. Unparseable prices contribute zero.
func DashboardStats(domains []domain.Domain, now time.Time) domain.DashboardStats {
	stats := domain.DashboardStats{
		TotalDomains:       len(domains),
		YearlyCostSum:      decimal.Zero,
		TotalInvestmentSum: decimal.Zero,
	}

	providers := make(map[string]struct{})
	for _, d := range domains {
		providers[d.Provider] = struct{}{}

		if days, err := datemath.DaysUntil(d.RenewalDate, now); err == nil && datemath.IsUrgent(days) {
			stats.ExpiringCount++
		}

		price := amount(d.Price)
		stats.YearlyCostSum = stats.YearlyCostSum.Add(price)
		if d.PurchasePrice != "" {
			stats.TotalInvestmentSum = stats.TotalInvestmentSum.Add(amount(d.PurchasePrice))
		} else {
			stats.TotalInvestmentSum = stats.TotalInvestmentSum.Add(price)
		}
	}
	stats.UniqueProviderCount = len(providers)
	return stats
}

// UrgentRenewals returns domains inside the expiring window, soonest first.
// Equal days keep store order. A limit of zero or less means DefaultLimit.
func UrgentRenewals(domains []domain.Domain, now time.Time, limit int) []domain.DomainView {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var urgent []domain.DomainView
	for _, v := range Annotate(domains, now) {
		if v.DaysUntil != nil && datemath.IsUrgent(*v.DaysUntil) {
			urgent = append(urgent, v)
		}
	}
	slices.SortStableFunc(urgent, func(a, b domain.DomainView) int {
		return *a.DaysUntil - *b.DaysUntil
	})
	if len(urgent) > limit {
		urgent = urgent[:limit]
	}
	return urgent
}

// NotificationsFor raises one notification per domain inside the expiring
// window. They come out in store order, not sorted by urgency.
func NotificationsFor(domains []domain.Domain, now time.Time, limit int) []domain.Notification {
	if limit <= 0 {
		limit = DefaultLimit
	}

	stamp := now.UTC().Format(time.RFC3339)
	var out []domain.Notification
	for _, d := range domains {
		if len(out) == limit {
			break
		}
		days, err := datemath.DaysUntil(d.RenewalDate, now)
		if err != nil || !datemath.IsUrgent(days) {
			continue
		}
		out = append(out, domain.Notification{
			Type:      domain.NotificationTypeExpiring,
			Title:     "Domain Expiring Soon",
			Message:   fmt.Sprintf("%s expires in %d days", d.Name, days),
			Timestamp: stamp,
			DomainID:  d.ID,
		})
	}
	return out
}

// MonthlyRenewalCosts sums prices by renewal month, January first.
func MonthlyRenewalCosts(domains []domain.Domain) [12]decimal.Decimal {
	var months [12]decimal.Decimal
	for i := range months {
		months[i] = decimal.Zero
	}
	for _, d := range domains {
		m, err := datemath.MonthBucket(d.RenewalDate)
		if err != nil {
			continue
		}
		months[m] = months[m].Add(amount(d.Price))
	}
	return months
}

// DomainCountByProvider counts domains per provider name, ordered by first
// occurrence.
func DomainCountByProvider(domains []domain.Domain) []domain.ProviderCount {
	pos := make(map[string]int)
	var out []domain.ProviderCount
	for _, d := range domains {
		i, ok := pos[d.Provider]
		if !ok {
			i = len(out)
			pos[d.Provider] = i
			out = append(out, domain.ProviderCount{Provider: d.Provider})
		}
		out[i].Count++
	}
	return out
}

// CalendarDays lays out a month grid starting on Sunday. Cells before the
// first of the month are padding.
func CalendarDays(domains []domain.Domain, year int, month time.Month) []domain.CalendarCell {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysIn := first.AddDate(0, 1, -1).Day()

	byDay := make(map[string][]domain.Domain)
	for _, d := range domains {
		key, err := datemath.DayKey(d.RenewalDate)
		if err != nil {
			continue
		}
		byDay[key] = append(byDay[key], d)
	}

	pad := int(first.Weekday())
	cells := make([]domain.CalendarCell, 0, pad+daysIn)
	for range pad {
		cells = append(cells, domain.CalendarCell{Padding: true, Domains: []domain.Domain{}})
	}
	for day := 1; day <= daysIn; day++ {
		key := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Format(datemath.DateLayout)
		hits := byDay[key]
		if hits == nil {
			hits = []domain.Domain{}
		}
		cells = append(cells, domain.CalendarCell{Day: day, Date: key, Domains: hits})
	}
	return cells
}

// ProviderSpend sums the renewal prices of one provider to two decimals.
func ProviderSpend(domains []domain.Domain, providerName string) string {
	total := decimal.Zero
	for _, d := range domains {
		if d.Provider == providerName {
			total = total.Add(amount(d.Price))
		}
	}
	return total.StringFixed(2)
}

// Search matches query case-insensitively against name and provider. An
// empty query matches everything.
func Search(domains []domain.Domain, query string) []domain.Domain {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return slices.Clone(domains)
	}
	var out []domain.Domain
	for _, d := range domains {
		if strings.Contains(strings.ToLower(d.Name), q) ||
			strings.Contains(strings.ToLower(d.Provider), q) {
			out = append(out, d)
		}
	}
	return out
}

// ExpiredAutoRenewals returns auto-renewing domains whose renewal date has
// passed.
func ExpiredAutoRenewals(domains []domain.Domain, now time.Time) []domain.Domain {
	var out []domain.Domain
	for _, d := range domains {
		if !d.AutoRenew {
			continue
		}
		if days, err := datemath.DaysUntil(d.RenewalDate, now); err == nil && days < 0 {
			out = append(out, d)
		}
	}
	return out
}

func amount(s string) decimal.Decimal {
	d, err := domain.ParseAmount(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
