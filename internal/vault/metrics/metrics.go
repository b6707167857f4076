package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers the persistence paths of the vault: remote calls, local
// cache writes, hydration and quarantine.
type Metrics struct {
	RemoteCalls         *prometheus.CounterVec
	RemoteDuration      *prometheus.HistogramVec
	CacheWriteFailures  prometheus.Counter
	Hydrations          *prometheus.CounterVec
	QuarantinedRecords  *prometheus.CounterVec
	StaleResults        prometheus.Counter
	PendingRemoteWrites prometheus.Gauge
	SweepRenewals       prometheus.Counter
}

// New registers the vault metrics with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RemoteCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "domainvault_remote_calls_total",
			Help: "Remote store calls by operation and outcome",
		}, []string{"op", "outcome"}),
		RemoteDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "domainvault_remote_call_duration_seconds",
			Help:    "Duration of remote store calls",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"op"}),
		CacheWriteFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "domainvault_cache_write_failures_total",
			Help: "Local cache writes that failed and were logged",
		}),
		Hydrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "domainvault_hydrations_total",
			Help: "Entity store hydrations by source (local, remote, fallback)",
		}, []string{"source"}),
		QuarantinedRecords: f.NewCounterVec(prometheus.CounterOpts{
			Name: "domainvault_quarantined_records_total",
			Help: "Records rejected while reading a backend",
		}, []string{"kind"}),
		StaleResults: f.NewCounter(prometheus.CounterOpts{
			Name: "domainvault_stale_remote_results_total",
			Help: "Remote results discarded because the record changed locally meanwhile",
		}),
		PendingRemoteWrites: f.NewGauge(prometheus.GaugeOpts{
			Name: "domainvault_pending_remote_writes",
			Help: "Remote tasks queued or in flight",
		}),
		SweepRenewals: f.NewCounter(prometheus.CounterOpts{
			Name: "domainvault_sweep_renewals_total",
			Help: "Domains rolled forward by the auto-renew sweeper",
		}),
	}
}

// ObserveRemote records one remote call. Call with time.Now() taken before
// the call.
func (m *Metrics) ObserveRemote(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RemoteCalls.WithLabelValues(op, outcome).Inc()
	m.RemoteDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncCacheWriteFailure() {
	if m != nil {
		m.CacheWriteFailures.Inc()
	}
}

func (m *Metrics) IncHydration(source string) {
	if m != nil {
		m.Hydrations.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) AddQuarantined(kind string, n int) {
	if m != nil && n > 0 {
		m.QuarantinedRecords.WithLabelValues(kind).Add(float64(n))
	}
}

func (m *Metrics) IncStale() {
	if m != nil {
		m.StaleResults.Inc()
	}
}

func (m *Metrics) TaskQueued() {
	if m != nil {
		m.PendingRemoteWrites.Inc()
	}
}

func (m *Metrics) TaskDone() {
	if m != nil {
		m.PendingRemoteWrites.Dec()
	}
}

func (m *Metrics) AddSweepRenewals(n int) {
	if m != nil && n > 0 {
		m.SweepRenewals.Add(float64(n))
	}
}
