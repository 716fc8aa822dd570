// Package metrics exposes Prometheus counters for synthesis, registration
// and persistence. A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rule_engine"

// Metrics groups the engine's counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Syntheses       *prometheus.CounterVec
	Registrations   *prometheus.CounterVec
	PriorityClamps  prometheus.Counter
	PersistFailures *prometheus.CounterVec
	Validations     *prometheus.CounterVec
}

// New creates and registers all counters.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Syntheses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "syntheses_total",
			Help:      "Synthesis requests by decision reason.",
		}, []string{"decision"}),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plugin_registrations_total",
			Help:      "Plugin registration attempts by outcome.",
		}, []string{"status"}),
		PriorityClamps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "priority_clamps_total",
			Help:      "Custom rules whose priority was raised to the minimum.",
		}),
		PersistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Persistence failures by stage.",
		}, []string{"stage"}),
		Validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Rule validations by kind and result.",
		}, []string{"kind", "valid"}),
	}
	m.registry.MustRegister(m.Syntheses, m.Registrations, m.PriorityClamps, m.PersistFailures, m.Validations)
	return m
}

// Registry returns the registry holding the counters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveSynthesis(decision string) {
	if m == nil {
		return
	}
	m.Syntheses.WithLabelValues(decision).Inc()
}

func (m *Metrics) ObserveRegistration(status string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(status).Inc()
}

func (m *Metrics) ObservePriorityClamp() {
	if m == nil {
		return
	}
	m.PriorityClamps.Inc()
}

func (m *Metrics) ObservePersistFailure(stage string) {
	if m == nil {
		return
	}
	m.PersistFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) ObserveValidation(kind string, valid bool) {
	if m == nil {
		return
	}
	m.Validations.WithLabelValues(kind, fmt.Sprint(valid)).Inc()
}

// WriteToTextfile writes the counters in the node-exporter textfile format.
func (m *Metrics) WriteToTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
