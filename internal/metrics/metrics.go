// Package metrics records per-run harvest counters in a private Prometheus
// registry. A CLI run has no scrape endpoint, so the registry is dumped in the
// node_exporter textfile format at the end of the run.
package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dexharvest"

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics is nil-safe: every method on a nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	fetches     *prometheus.CounterVec
	inFlight    prometheus.Gauge
	inFlightMax prometheus.Gauge
	written     *prometheus.GaugeVec
	duration    prometheus.Gauge

	mu      sync.Mutex
	current int
	peak    int
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Item retrieval attempts by bucket and outcome.",
		}, []string{"bucket", "outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetch_in_flight",
			Help:      "Retrievals currently in flight across all batches.",
		}),
		inFlightMax: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetch_in_flight_max",
			Help:      "Highest number of simultaneous retrievals observed during the run.",
		}),
		written: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "documents_written",
			Help:      "Documents written to the aggregate output per bucket.",
		}, []string{"bucket"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the last run.",
		}),
	}
	m.registry.MustRegister(m.fetches, m.inFlight, m.inFlightMax, m.written, m.duration)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Begin marks one retrieval as started and returns a func that marks it done.
func (m *Metrics) Begin(bucket string) func(ok bool) {
	if m == nil {
		return func(bool) {}
	}
	m.mu.Lock()
	m.current++
	if m.current > m.peak {
		m.peak = m.current
		m.inFlightMax.Set(float64(m.peak))
	}
	m.inFlight.Set(float64(m.current))
	m.mu.Unlock()

	return func(ok bool) {
		outcome := OutcomeSuccess
		if !ok {
			outcome = OutcomeFailure
		}
		m.fetches.WithLabelValues(bucket, outcome).Inc()

		m.mu.Lock()
		m.current--
		m.inFlight.Set(float64(m.current))
		m.mu.Unlock()
	}
}

// Peak returns the highest in-flight count observed.
func (m *Metrics) Peak() int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peak
}

func (m *Metrics) Written(bucket string, n int) {
	if m == nil {
		return
	}
	m.written.WithLabelValues(bucket).Set(float64(n))
}

func (m *Metrics) ObserveRun(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Set(d.Seconds())
}

// WriteTextfile writes all metrics to path in the textfile collector format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return fmt.Errorf("metrics: nil Metrics")
	}
	if path == "" {
		return fmt.Errorf("metrics: textfile path required")
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("metrics: write textfile: %w", err)
	}
	return nil
}
