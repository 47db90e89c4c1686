package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the server's Prometheus instruments. One set is shared by
// all jobs.
type Metrics struct {
	jobsTotal     *prometheus.CounterVec
	jobsRunning   prometheus.Gauge
	solveLatency  prometheus.Histogram
	matrixLatency prometheus.Histogram
}

// NewMetrics builds and registers the instruments with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lastmile_route_jobs_total",
			Help: "Route jobs by terminal status",
		}, []string{"status"}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lastmile_route_jobs_running",
			Help: "Route jobs currently running",
		}),
		solveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lastmile_solve_duration_seconds",
			Help:    "Latency of annealing runs",
			Buckets: prometheus.DefBuckets,
		}),
		matrixLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lastmile_matrix_build_duration_seconds",
			Help:    "Latency of distance matrix builds",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.jobsTotal, m.jobsRunning, m.solveLatency, m.matrixLatency)
	return m
}

func (m *Metrics) jobStarted() {
	m.jobsRunning.Inc()
}

func (m *Metrics) jobFinished(status string) {
	m.jobsRunning.Dec()
	m.jobsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) observeMatrixBuild(elapsed time.Duration) {
	m.matrixLatency.Observe(elapsed.Seconds())
}

func (m *Metrics) observeSolve(elapsed time.Duration) {
	m.solveLatency.Observe(elapsed.Seconds())
}
