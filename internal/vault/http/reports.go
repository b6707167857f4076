package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aussiebroadwan/domainvault/internal/vault/coordinator"
	"github.com/aussiebroadwan/domainvault/internal/vault/datemath"
	"github.com/aussiebroadwan/domainvault/internal/vault/derive"
	"github.com/aussiebroadwan/domainvault/internal/vault/domain"
	"github.com/aussiebroadwan/domainvault/internal/vault/export"
	"github.com/aussiebroadwan/domainvault/pkg/cryptox"
	"github.com/aussiebroadwan/domainvault/pkg/httpx"
)

// ReportsHandler serves the read-only views derived from the portfolio.
// Results that depend only on the portfolio and the UTC day are memoised.
type ReportsHandler struct {
	Coord   *coordinator.Coordinator
	Clock   datemath.Clock
	Memo    *derive.Memo
	Encoder *export.Encoder
}

type urgentResponse struct {
	Renewals []domain.DomainView `json:"renewals"`
}

type notificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
}

type monthlyCostsResponse struct {
	Months [12]decimal.Decimal `json:"months"`
}

type providerReportResponse struct {
	Providers []domain.ProviderCount `json:"providers"`
}

type calendarResponse struct {
	Year  int                   `json:"year"`
	Month int                   `json:"month"`
	Cells []domain.CalendarCell `json:"cells"`
}

func (h *ReportsHandler) snapshot() ([]domain.Domain, uint64, time.Time) {
	snap := h.Coord.Portfolio().Snapshot()
	return snap.Domains, snap.Revision, h.Clock.Now()
}

func (h *ReportsHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	domains, rev, now := h.snapshot()
	stats := derive.Get(h.Memo, "dashboard", rev, now, func() domain.DashboardStats {
		return derive.DashboardStats(domains, now)
	})
	httpx.WriteJSON(w, http.StatusOK, stats)
}

func (h *ReportsHandler) HandleUrgent(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	domains, rev, now := h.snapshot()
	urgent := derive.Get(h.Memo, "urgent:"+strconv.Itoa(limit), rev, now, func() []domain.DomainView {
		return derive.UrgentRenewals(domains, now, limit)
	})
	if urgent == nil {
		urgent = []domain.DomainView{}
	}
	httpx.WriteJSON(w, http.StatusOK, urgentResponse{Renewals: urgent})
}

// HandleNotifications is not memoised: every notification carries the
// current time.
func (h *ReportsHandler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	domains, _, now := h.snapshot()
	out := derive.NotificationsFor(domains, now, limit)
	if out == nil {
		out = []domain.Notification{}
	}
	httpx.WriteJSON(w, http.StatusOK, notificationsResponse{Notifications: out})
}

func (h *ReportsHandler) HandleMonthlyCosts(w http.ResponseWriter, r *http.Request) {
	domains, rev, now := h.snapshot()
	months := derive.Get(h.Memo, "monthly-costs", rev, now, func() [12]decimal.Decimal {
		return derive.MonthlyRenewalCosts(domains)
	})
	httpx.WriteJSON(w, http.StatusOK, monthlyCostsResponse{Months: months})
}

func (h *ReportsHandler) HandleProviderReport(w http.ResponseWriter, r *http.Request) {
	domains, rev, now := h.snapshot()
	counts := derive.Get(h.Memo, "provider-counts", rev, now, func() []domain.ProviderCount {
		return derive.DomainCountByProvider(domains)
	})
	if counts == nil {
		counts = []domain.ProviderCount{}
	}
	httpx.WriteJSON(w, http.StatusOK, providerReportResponse{Providers: counts})
}

func (h *ReportsHandler) HandleCalendar(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil || year < 1 || year > 9999 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "year must be between 1 and 9999")
		return
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil || month < 1 || month > 12 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "month must be between 1 and 12")
		return
	}

	domains, rev, now := h.snapshot()
	name := fmt.Sprintf("calendar:%04d-%02d", year, month)
	cells := derive.Get(h.Memo, name, rev, now, func() []domain.CalendarCell {
		return derive.CalendarDays(domains, year, time.Month(month))
	})
	httpx.WriteJSON(w, http.StatusOK, calendarResponse{Year: year, Month: month, Cells: cells})
}

// HandleExport downloads the renewal calendar as an iCalendar file. The
// output is deterministic, so its digest doubles as a strong ETag.
func (h *ReportsHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	enc := h.Encoder
	if enc == nil {
		enc = export.NewEncoder("")
	}
	body := enc.Calendar(h.Coord.Portfolio().ListDomains())
	etag := `"` + cryptox.Fingerprint(body) + `"`

	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", export.ContentType+"; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
