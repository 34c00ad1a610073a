// Package metrics exposes a run's demographics as prometheus metrics. The
// collectors live on their own registry so several runs in one process, or
// tests, never collide; the registry can be written out as a node_exporter
// textfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/talgya/lineage/internal/engine"
)

// Metrics provides observability for a simulation run.
type Metrics struct {
	reg *prometheus.Registry

	// Events emitted by type
	Events *prometheus.CounterVec

	// Living population after each year
	Population prometheus.Gauge

	// Everyone ever registered in the run
	EverLived prometheus.Gauge

	// Last simulated year
	Year prometheus.Gauge

	// 1 while the run is in progress, 0 once it ended
	Running prometheus.Gauge

	// Wall-clock duration of a simulated year
	YearLatency prometheus.Histogram
}

// New creates a Metrics instance with every collector registered on a
// fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,

		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lineage_events_total",
			Help: "Total simulation events by type",
		}, []string{"type"}), // type: BIRTH, DEATH, MARRIAGE, ...

		Population: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lineage_population_living",
			Help: "Living population at the end of the last simulated year",
		}),

		EverLived: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lineage_population_ever_lived",
			Help: "Number of people registered in the run, living or dead",
		}),

		Year: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lineage_year",
			Help: "Last simulated year",
		}),

		Running: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lineage_running",
			Help: "1 while the simulation is running, 0 once it has ended",
		}),

		YearLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "lineage_year_duration_seconds",
			Help:    "Time spent simulating one year, excluding pauses between years",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// ObserveYear records one year's result and the population afterwards.
func (m *Metrics) ObserveYear(res engine.Result, stats engine.Stats, d time.Duration) {
	if m == nil {
		return
	}
	for _, e := range res.Events {
		m.Events.WithLabelValues(string(e.Type)).Inc()
	}
	m.Population.Set(float64(stats.Living))
	m.EverLived.Set(float64(stats.EverLived))
	m.Year.Set(float64(res.Year))
	if res.Continue {
		m.Running.Set(1)
	} else {
		m.Running.Set(0)
	}
	m.YearLatency.Observe(d.Seconds())
}

// ObserveHistory seeds the event counters from a restored run's history
// so totals stay continuous across a resume.
func (m *Metrics) ObserveHistory(sim *engine.Simulation) {
	if m == nil {
		return
	}
	for _, y := range sim.Years() {
		for _, e := range sim.EventsFor(y) {
			m.Events.WithLabelValues(string(e.Type)).Inc()
		}
	}
	m.Population.Set(float64(sim.Stats.Living))
	m.EverLived.Set(float64(sim.Stats.EverLived))
	m.Year.Set(float64(sim.CurrentYear()))
	if sim.State() == engine.StateRunning {
		m.Running.Set(1)
	}
}

// WriteTextfile writes the registry in the text exposition format to path,
// atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.reg)
}
