package domain

import (
	"github.com/shopspring/decimal"

	"github.com/aussiebroadwan/domainvault/internal/vault/datemath"
)

// NotificationTypeExpiring is the only notification kind the vault raises.
const NotificationTypeExpiring = "expiring"

// Notification is derived on demand and never stored.
type Notification struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	DomainID  string `json:"domainId"`
}

// DashboardStats summarises a portfolio.
type DashboardStats struct {
	TotalDomains        int             `json:"totalDomains"`
	UniqueProviderCount int             `json:"uniqueProviderCount"`
	ExpiringCount       int             `json:"expiringCount"`
	YearlyCostSum       decimal.Decimal `json:"yearlyCostSum"`
	TotalInvestmentSum  decimal.Decimal `json:"totalInvestmentSum"`
}

// DomainView is a domain annotated with its time-based status. DaysUntil
// is nil when the renewal date does not parse.
type DomainView struct {
	Domain    Domain          `json:"domain"`
	DaysUntil *int            `json:"daysUntil"`
	Status    datemath.Status `json:"status"`
}

// ProviderCount is one row of the domains-per-provider report.
type ProviderCount struct {
	Provider string `json:"provider"`
	Count    int    `json:"count"`
}

// CalendarCell is one square of a month grid. Padding cells before the
// first weekday have Day 0 and no domains.
type CalendarCell struct {
	Day     int      `json:"day"`
	Date    string   `json:"date,omitempty"`
	Padding bool     `json:"padding"`
	Domains []Domain `json:"domains"`
}
