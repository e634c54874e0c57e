// Package metrics tracks container lifecycle outcomes and exposes them as
// Prometheus counters: starts, start failures, pauses, unpauses, and
// terminations split by trigger.
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Termination triggers reported on the terminated counter.
const (
	// TriggerManual marks a termination requested by a caller.
	TriggerManual = "manual"
	// TriggerAuto marks a termination fired by the auto-termination timer.
	TriggerAuto = "auto"
)

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// Metrics handles recording and exposing lifecycle metrics.
type Metrics struct {
	started       prometheus.Counter     // Counter for successful starts.
	startFailures prometheus.Counter     // Counter for failed starts.
	paused        prometheus.Counter     // Counter for pause operations.
	unpaused      prometheus.Counter     // Counter for unpause operations.
	terminated    *prometheus.CounterVec // Counter for terminations by trigger.
}

// NewWithRegistry creates a Metrics handler registered on the given
// Prometheus registerer.
//
// Parameters:
//   - registry: Prometheus registerer to use for metric registration.
//
// Returns:
//   - (*Metrics, error): Metrics handler, or an error if registration fails.
func NewWithRegistry(registry prometheus.Registerer) (*Metrics, error) {
	metrics := &Metrics{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "berth_containers_started_total",
			Help: "Total number of containers that reached RUNNING after a successful start",
		}),
		startFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "berth_start_failures_total",
			Help: "Total number of container starts that ended in FAILED",
		}),
		paused: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "berth_containers_paused_total",
			Help: "Total number of successful pause operations",
		}),
		unpaused: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "berth_containers_unpaused_total",
			Help: "Total number of successful unpause operations",
		}),
		terminated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "berth_containers_terminated_total",
			Help: "Total number of containers terminated, by trigger",
		}, []string{"trigger"}),
	}

	collectors := []prometheus.Collector{
		metrics.started,
		metrics.startFailures,
		metrics.paused,
		metrics.unpaused,
		metrics.terminated,
	}
	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register lifecycle metrics: %w", err)
		}
	}

	return metrics, nil
}

// Default returns the process-wide Metrics handler, creating it on the
// default Prometheus registerer on first use.
func Default() *Metrics {
	defaultOnce.Do(func() {
		handler, err := NewWithRegistry(prometheus.DefaultRegisterer)
		if err != nil {
			// Only possible if something else claimed the metric names on
			// the default registerer.
			panic(err)
		}

		defaultMetrics = handler
	})

	return defaultMetrics
}

// RegisterStart records a container reaching RUNNING.
func (m *Metrics) RegisterStart() {
	m.started.Inc()
}

// RegisterStartFailure records a container start ending in FAILED.
func (m *Metrics) RegisterStartFailure() {
	m.startFailures.Inc()
}

// RegisterPause records a successful pause.
func (m *Metrics) RegisterPause() {
	m.paused.Inc()
}

// RegisterUnpause records a successful unpause.
func (m *Metrics) RegisterUnpause() {
	m.unpaused.Inc()
}

// RegisterTermination records a termination with the given trigger.
func (m *Metrics) RegisterTermination(trigger string) {
	m.terminated.WithLabelValues(trigger).Inc()
}
