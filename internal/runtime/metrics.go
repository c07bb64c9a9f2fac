// Package runtime is the composition root (spec §5): a bounded work
// queue of ready asset-day folders, a counting semaphore bounding
// extracted temp folders on disk, an ants-based worker pool supervised
// by an errgroup, active-folder shared state, and a process-wide
// shutdown flag.
package runtime

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the operational surface exported for scraping (spec §1
// ambient stack: "events processed, bars emitted, rows pushed, queue
// depth, semaphore utilization"), mirroring the teacher's
// prometheus.Registry-per-component pattern
// (internal/metrics/metrics_module.go) without the fx wiring.
type Metrics struct {
	EventsProcessed prometheus.Counter
	BarsEmitted     prometheus.Counter
	RowsPushed      prometheus.Counter
	QueueDepth      prometheus.Gauge
	FoldersInUse    prometheus.Gauge
	WorkerPanics    prometheus.Counter
}

// NewMetrics registers every collector against reg. Pass a fresh
// prometheus.NewRegistry() per process (or per test) to avoid
// duplicate-registration panics across test runs.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		EventsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_events_processed_total",
			Help: "Order events applied to the LOB engine.",
		}),
		BarsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_bars_emitted_total",
			Help: "Run bars and minute/hour bars emitted.",
		}),
		RowsPushed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_feature_rows_pushed_total",
			Help: "Rows pushed into the feature store across all levels.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_work_queue_depth",
			Help: "Ready asset-day folders currently queued.",
		}),
		FoldersInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_extracted_folders_in_use",
			Help: "Extracted temp folders currently holding a semaphore permit.",
		}),
		WorkerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_worker_panics_total",
			Help: "Panics recovered from worker-pool tasks.",
		}),
	}
	reg.MustRegister(m.EventsProcessed, m.BarsEmitted, m.RowsPushed, m.QueueDepth, m.FoldersInUse, m.WorkerPanics)
	return m
}
