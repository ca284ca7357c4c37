// Package metrics exposes prometheus metrics for the storage core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SweepMetrics holds the prometheus metrics emitted by the reconciliation
// sweeper.
type SweepMetrics struct {
	RunsTotal        prometheus.Counter   // campusshare_sweep_runs_total
	RunDuration      prometheus.Histogram // campusshare_sweep_run_duration_seconds
	EntriesDeleted   prometheus.Counter   // campusshare_sweep_entries_deleted_total
	BytesFreed       prometheus.Counter   // campusshare_sweep_bytes_freed_total
	OrphansDeleted   prometheus.Counter   // campusshare_sweep_orphans_deleted_total
	OrphanBytesFreed prometheus.Counter   // campusshare_sweep_orphan_bytes_freed_total
	EntryErrors      prometheus.Counter   // campusshare_sweep_entry_errors_total
}

// NewSweepMetrics registers the sweeper metrics on the given registerer.
// Pass prometheus.NewRegistry() in tests to avoid global state.
func NewSweepMetrics(registry prometheus.Registerer) *SweepMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	return &SweepMetrics{
		RunsTotal: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "campusshare_sweep_runs_total",
			Help: "Total reconciliation sweeper runs",
		}),
		RunDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "campusshare_sweep_run_duration_seconds",
			Help:    "Sweeper run duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		EntriesDeleted: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "campusshare_sweep_entries_deleted_total",
			Help: "Expired content entries removed by the sweeper",
		}),
		BytesFreed: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "campusshare_sweep_bytes_freed_total",
			Help: "Bytes freed by expired-entry removal",
		}),
		OrphansDeleted: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "campusshare_sweep_orphans_deleted_total",
			Help: "Orphaned payloads removed by the sweeper",
		}),
		OrphanBytesFreed: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "campusshare_sweep_orphan_bytes_freed_total",
			Help: "Bytes freed by orphan removal",
		}),
		EntryErrors: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "campusshare_sweep_entry_errors_total",
			Help: "Per-entry errors encountered during sweeper runs",
		}),
	}
}
