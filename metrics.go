package helio

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects the scheduler statistics.
type Metrics struct {
	ticks               prometheus.Counter
	tickDuration        prometheus.Histogram
	keplerIterations    *prometheus.HistogramVec
	convergenceFailures *prometheus.CounterVec
}

// NewMetrics creates and registers the metrics. A nil registerer skips registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "helio_ticks_total",
			Help: "Total number of simulation ticks",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "helio_tick_duration_seconds",
			Help:    "Time spent solving all the bodies of a tick",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		keplerIterations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helio_kepler_iterations",
			Help:    "Iterations needed to solve Kepler's equation",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34, 55, 89},
		}, []string{"body"}),
		convergenceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helio_convergence_failures_total",
			Help: "Total number of Kepler iterations which did not converge",
		}, []string{"body"}),
	}
	if reg != nil {
		reg.MustRegister(m.ticks, m.tickDuration, m.keplerIterations, m.convergenceFailures)
	}
	return m
}

// ObserveFrame records a successful tick.
func (m *Metrics) ObserveFrame(f Frame, took time.Duration) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(took.Seconds())
	for name, sol := range f.Solutions {
		m.keplerIterations.WithLabelValues(name).Observe(float64(sol.Iterations))
	}
}

// ObserveError records a failed tick.
func (m *Metrics) ObserveError(err error) {
	if m == nil {
		return
	}
	var cErr *ConvergenceError
	if errors.As(err, &cErr) {
		m.convergenceFailures.WithLabelValues(cErr.Body).Inc()
	}
}
