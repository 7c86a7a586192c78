package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	operationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "anchorfolio",
			Subsystem: "portfolio",
			Name:      "operation_latency_seconds",
			Help:      "Latency of portfolio operations",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	operationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "anchorfolio",
			Subsystem: "portfolio",
			Name:      "errors_total",
			Help:      "Errors by kind",
		},
		[]string{"kind"},
	)

	signalsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "anchorfolio",
			Subsystem: "signals",
			Name:      "generated_total",
			Help:      "Generated trading signals by category",
		},
		[]string{"category"},
	)

	optimizedSharpe = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "anchorfolio",
			Subsystem: "portfolio",
			Name:      "optimized_sharpe_ratio",
			Help:      "Sharpe ratio of the last solved allocation by objective",
		},
		[]string{"objective"},
	)
)

func register() {
	once.Do(func() {
		prometheus.MustRegister(operationLatency, operationErrors, signalsGenerated, optimizedSharpe)
	})
}

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct{}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	register()
	return &Recorder{}
}

// RecordOperation records operation latency in seconds.
func (r *Recorder) RecordOperation(op string, seconds float64) {
	operationLatency.WithLabelValues(op).Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	operationErrors.WithLabelValues(kind).Inc()
}

// RecordSignals records generated signals for a category.
func (r *Recorder) RecordSignals(category string, n int) {
	signalsGenerated.WithLabelValues(category).Add(float64(n))
}

// RecordSharpe records the Sharpe ratio of the last solved allocation.
func (r *Recorder) RecordSharpe(objective string, sharpe float64) {
	optimizedSharpe.WithLabelValues(objective).Set(sharpe)
}
