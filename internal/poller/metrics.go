package poller

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Skip reasons reported by seqpoll_runs_skipped_total.
const (
	SkipMalformed = "malformed_name"
	SkipTooOld    = "before_min_year"
	SkipBusy      = "locked"
)

// Metrics collects poll counters on a private registry. They are written to
// a node_exporter textfile at the end of a poll.
type Metrics struct {
	registry     *prometheus.Registry
	discovered   prometheus.Counter
	skipped      *prometheus.CounterVec
	passes       *prometheus.CounterVec
	lastDuration prometheus.Gauge
	lastPoll     prometheus.Gauge
}

// NewMetrics registers the poll metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		discovered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seqpoll_runs_discovered_total",
			Help: "Run directories found by the scanner.",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seqpoll_runs_skipped_total",
			Help: "Runs not handed to the lifecycle engine, by reason.",
		}, []string{"reason"}),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seqpoll_passes_total",
			Help: "Lifecycle passes, by disposition.",
		}, []string{"outcome"}),
		lastDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "seqpoll_last_poll_duration_seconds",
			Help: "Wall time of the most recent poll.",
		}),
		lastPoll: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "seqpoll_last_poll_timestamp_seconds",
			Help: "Unix time the most recent poll finished.",
		}),
	}
	m.registry.MustRegister(m.discovered, m.skipped, m.passes, m.lastDuration, m.lastPoll)
	return m
}

// Registry exposes the underlying registry (tests, alternative exporters).
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) runDiscovered() {
	if m != nil {
		m.discovered.Inc()
	}
}

func (m *Metrics) runSkipped(reason string) {
	if m != nil {
		m.skipped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) passFinished(outcome string) {
	if m != nil {
		m.passes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) pollFinished(duration time.Duration, at time.Time) {
	if m != nil {
		m.lastDuration.Set(duration.Seconds())
		m.lastPoll.Set(float64(at.Unix()))
	}
}

// WriteTextfile writes the registry to path atomically. An empty path is a
// no-op.
func (m *Metrics) WriteTextfile(path string) error {
	path = strings.TrimSpace(path)
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
