// Package observability provides Prometheus metrics for disk check runs.
//
// A run is short-lived, so metrics are not served over HTTP. They are written
// once, at cleanup, in the node_exporter textfile format.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/klog/v2"
)

const (
	// namespace is the Prometheus metric namespace prefix for all diskcheck metrics.
	namespace = "diskcheck"
)

// Metrics holds all Prometheus metrics for one run.
type Metrics struct {
	registry *prometheus.Registry

	// Per-volume outcome metrics
	volumeOutcomesTotal *prometheus.CounterVec

	// Host tool metrics
	hostOpsTotal    *prometheus.CounterVec
	hostOpsDuration *prometheus.HistogramVec

	// Run-level gauges
	strandedVolumes   prometheus.Gauge
	manualEntries     prometheus.Gauge
	runDuration       prometheus.Gauge
	lastRunTimestamp  prometheus.Gauge
	runInfo           *prometheus.GaugeVec
	staleVolumesFound prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
// Uses a custom registry so only diskcheck series end up in the textfile.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		volumeOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "volume_outcomes_total",
				Help:      "Volumes processed by outcome and filesystem kind",
			},
			[]string{"outcome", "kind"},
		),

		hostOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "host_operations_total",
				Help:      "Host disk tool invocations by operation and status",
			},
			[]string{"operation", "status"},
		),

		hostOpsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "host_operation_duration_seconds",
				Help:      "Duration of host disk tool invocations in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
			},
			[]string{"operation"},
		),

		strandedVolumes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stranded_volumes",
			Help:      "Volumes left unmounted after a failed remount",
		}),

		manualEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "manual_intervention_entries",
			Help:      "Entries written to the manual-intervention log",
		}),

		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the last run",
		}),

		lastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),

		runInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "run_info",
				Help:      "Identity of the last run",
			},
			[]string{"run_id", "mode", "reason"},
		),

		staleVolumesFound: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stale_volumes_found",
			Help:      "Volumes a previous run left unmounted",
		}),
	}

	// Register all metrics with the custom registry
	reg.MustRegister(
		m.volumeOutcomesTotal,
		m.hostOpsTotal,
		m.hostOpsDuration,
		m.strandedVolumes,
		m.manualEntries,
		m.runDuration,
		m.lastRunTimestamp,
		m.runInfo,
		m.staleVolumesFound,
	)

	return m
}

// Registry returns the custom registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordOutcome records the outcome of one volume.
// outcome should be one of the policy outcomes or a skip reason.
func (m *Metrics) RecordOutcome(outcome, kind string) {
	m.volumeOutcomesTotal.WithLabelValues(outcome, kind).Inc()
}

// RecordHostOp records a host disk tool invocation with timing.
func (m *Metrics) RecordHostOp(operation string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.hostOpsTotal.WithLabelValues(operation, status).Inc()
	m.hostOpsDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordStaleVolumes records how many volumes a previous run left behind.
func (m *Metrics) RecordStaleVolumes(n int) {
	m.staleVolumesFound.Set(float64(n))
}

// RunSummary is the end-of-run state captured by cleanup
type RunSummary struct {
	RunID         string
	Mode          string
	Reason        string
	Started       time.Time
	Finished      time.Time
	Stranded      int
	ManualEntries int
}

// RecordRun sets the run-level gauges.
func (m *Metrics) RecordRun(s RunSummary) {
	m.strandedVolumes.Set(float64(s.Stranded))
	m.manualEntries.Set(float64(s.ManualEntries))
	m.runDuration.Set(s.Finished.Sub(s.Started).Seconds())
	m.lastRunTimestamp.Set(float64(s.Finished.Unix()))
	m.runInfo.Reset()
	m.runInfo.WithLabelValues(s.RunID, s.Mode, s.Reason).Set(1)
}

// WriteTextfile writes every metric to path for the node_exporter textfile
// collector. The file is replaced atomically. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return err
	}
	klog.V(4).Infof("Wrote metrics textfile %s", path)
	return nil
}
