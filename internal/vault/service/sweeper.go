package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/domainvault/internal/vault/coordinator"
	"github.com/aussiebroadwan/domainvault/internal/vault/datemath"
	"github.com/aussiebroadwan/domainvault/internal/vault/derive"
	"github.com/aussiebroadwan/domainvault/internal/vault/domain"
	"github.com/aussiebroadwan/domainvault/internal/vault/metrics"
)

// RenewalSweeper rolls auto-renewing domains past their renewal date
// forward by whole years, the way the registrar would have renewed them.
type RenewalSweeper struct {
	Coordinator *coordinator.Coordinator
	Clock       datemath.Clock
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

func NewRenewalSweeper(coord *coordinator.Coordinator, clock datemath.Clock, logger *slog.Logger, m *metrics.Metrics) *RenewalSweeper {
	if clock == nil {
		clock = datemath.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RenewalSweeper{Coordinator: coord, Clock: clock, Logger: logger, Metrics: m}
}

func (s *RenewalSweeper) Name() string { return "renewal-sweep" }

// Run sweeps once. One domain failing does not stop the others.
func (s *RenewalSweeper) Run(ctx context.Context) error {
	_, err := s.Sweep(ctx)
	return err
}

// Sweep reports how many domains it renewed.
func (s *RenewalSweeper) Sweep(ctx context.Context) (int, error) {
	now := s.Clock.Now()
	all := s.Coordinator.Portfolio().ListDomains()

	var (
		renewed int
		errs    []error
	)
	for _, d := range derive.ExpiredAutoRenewals(all, now) {
		next, years, err := datemath.RollForwardYears(d.RenewalDate, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		patch, err := domain.PatchDomain(d.ID, map[string]any{"renewalDate": next})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := s.Coordinator.SaveDomain(ctx, patch); err != nil {
			// Removed since the listing.
			if errors.Is(err, coordinator.ErrNotFound) {
				continue
			}
			s.Logger.Error("auto-renew failed", "domain", d.Name, "error", err)
			errs = append(errs, err)
			continue
		}

		s.Logger.Info("domain auto-renewed", "domain", d.Name, "from", d.RenewalDate, "to", next, "years", years)
		renewed++
	}

	s.Metrics.AddSweepRenewals(renewed)
	stats := derive.DashboardStats(s.Coordinator.Portfolio().ListDomains(), now)
	s.Logger.Info("renewal sweep completed", "renewed", renewed, "expiring", stats.ExpiringCount)

	return renewed, errors.Join(errs...)
}
