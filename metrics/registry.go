// Package metrics provides shared Prometheus registration helpers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "claim_agent"

// CountBuckets is a shared bucket layout for small discrete counts.
var CountBuckets = []float64{1, 2, 3, 5, 8, 13, 21, 34}

// DurationBuckets is a shared bucket layout for operation latencies in seconds.
var DurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// ComponentRegistry namespaces and registers metrics for a single component
// against the default Prometheus registerer.
type ComponentRegistry struct {
	subsystem  string
	registerer prometheus.Registerer
}

// NewComponentRegistry creates a registry for the given component subsystem.
// An empty instance label is allowed.
func NewComponentRegistry(subsystem, instance string) *ComponentRegistry {
	reg := prometheus.Registerer(prometheus.DefaultRegisterer)
	if instance != "" {
		reg = prometheus.WrapRegistererWith(prometheus.Labels{"instance": instance}, reg)
	}
	return &ComponentRegistry{subsystem: subsystem, registerer: reg}
}

func (r *ComponentRegistry) NewCounter(opts prometheus.CounterOpts) prometheus.Counter {
	opts.Namespace = namespace
	opts.Subsystem = r.subsystem
	c := prometheus.NewCounter(opts)
	r.registerer.MustRegister(c)
	return c
}

func (r *ComponentRegistry) NewCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	opts.Namespace = namespace
	opts.Subsystem = r.subsystem
	c := prometheus.NewCounterVec(opts, labels)
	r.registerer.MustRegister(c)
	return c
}

func (r *ComponentRegistry) NewGauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	opts.Namespace = namespace
	opts.Subsystem = r.subsystem
	g := prometheus.NewGauge(opts)
	r.registerer.MustRegister(g)
	return g
}

func (r *ComponentRegistry) NewGaugeVec(opts prometheus.GaugeOpts, labels []string) *prometheus.GaugeVec {
	opts.Namespace = namespace
	opts.Subsystem = r.subsystem
	g := prometheus.NewGaugeVec(opts, labels)
	r.registerer.MustRegister(g)
	return g
}

func (r *ComponentRegistry) NewHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	opts.Namespace = namespace
	opts.Subsystem = r.subsystem
	h := prometheus.NewHistogram(opts)
	r.registerer.MustRegister(h)
	return h
}
