package bench

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"cvrp/internal/opt"
)

// Metrics — собственный реестр, выгружается в формате textfile node-exporter.
type Metrics struct {
	reg *prometheus.Registry

	runs        *prometheus.CounterVec
	evaluations *prometheus.CounterVec
	cost        *prometheus.HistogramVec
	duration    *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := []string{"algorithm", "instance"}

	return &Metrics{
		reg: reg,
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cvrp_runs_total",
				Help: "Completed solver runs",
			},
			labels,
		),
		evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cvrp_evaluations_total",
				Help: "Fitness evaluations performed by solver runs",
			},
			labels,
		),
		cost: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cvrp_route_cost",
				Help:    "Route distance of the solution returned by a run",
				Buckets: prometheus.ExponentialBuckets(100, 1.5, 12),
			},
			labels,
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cvrp_run_duration_seconds",
				Help:    "Wall time of a solver run",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			labels,
		),
	}
}

func (m *Metrics) Observe(algo, instance string, res opt.Result, dur time.Duration) {
	m.runs.WithLabelValues(algo, instance).Inc()
	m.evaluations.WithLabelValues(algo, instance).Add(float64(res.Evaluations))
	m.cost.WithLabelValues(algo, instance).Observe(res.Cost)
	m.duration.WithLabelValues(algo, instance).Observe(dur.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) WriteTextfile(path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, m.reg)
}
