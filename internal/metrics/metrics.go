// Package metrics holds the prometheus collectors of the watcher.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is registered on its own registry, never the global one.
type Metrics struct {
	Registry *prometheus.Registry

	Runs          *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	SourceFetches *prometheus.CounterVec
	Changes       *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	LastRun       prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "healthwatch_runs_total",
			Help: "Runs by result (ok, partial, skipped, error)",
		}, []string{"result"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "healthwatch_run_duration_seconds",
			Help:    "Duration of a full run including notification",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		SourceFetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "healthwatch_source_fetches_total",
			Help: "Source fetches by source and result",
		}, []string{"source", "result"}),
		Changes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "healthwatch_changes_total",
			Help: "Detected changes by kind",
		}, []string{"kind"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "healthwatch_notifications_total",
			Help: "Notification sends by result (ok, failed, unreachable)",
		}, []string{"result"}),
		LastRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "healthwatch_last_run_timestamp_seconds",
			Help: "Unix time of the last completed run",
		}),
	}
}

// ObserveRun records a finished run. Call with time.Now() at the start of the run.
func (m *Metrics) ObserveRun(result string, start time.Time) {
	m.Runs.WithLabelValues(result).Inc()
	m.RunDuration.Observe(time.Since(start).Seconds())
	m.LastRun.SetToCurrentTime()
}

func (m *Metrics) SourceFetch(source, result string) {
	m.SourceFetches.WithLabelValues(source, result).Inc()
}

func (m *Metrics) Change(kind string) { m.Changes.WithLabelValues(kind).Inc() }

// NotificationResult satisfies dispatch.Observer.
func (m *Metrics) NotificationResult(result string) {
	m.Notifications.WithLabelValues(result).Inc()
}
