// Package metrics exposes Prometheus series for the cluster (master-side)
// and per-worker request handling, per the metrics enrichment in SPEC_FULL.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WorkersRegistered tracks the current registry size.
	WorkersRegistered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cluster_workers_registered",
			Help: "Current number of workers registered with the master",
		},
	)

	// DispatchRequestsTotal counts every atomic/specific/partial dispatch
	// attempt, labeled by route and outcome (ok, failed, pool_exhausted).
	DispatchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cluster_dispatch_requests_total",
			Help: "Total number of dispatch attempts by route and outcome",
		},
		[]string{"route", "outcome"},
	)

	// JobDuration measures end-to-end compound job latency by job type
	// (countwords, matrixmult).
	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cluster_job_duration_seconds",
			Help:    "Compound job duration in seconds by job type",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job_type"},
	)

	// PartitionRetriesTotal counts partition retries consumed by worker
	// death during fan-out, labeled by job type.
	PartitionRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cluster_partition_retries_total",
			Help: "Total number of partition retries caused by worker death",
		},
		[]string{"job_type"},
	)

	// WorkerRequestsTotal is the worker-side counterpart: every route a
	// worker served, labeled by route.
	WorkerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_requests_total",
			Help: "Total number of requests handled by this worker by route",
		},
		[]string{"route"},
	)

	// WorkerRequestDuration measures per-route handling latency on a worker.
	WorkerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worker_request_duration_seconds",
			Help:    "Worker request duration in seconds by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(WorkersRegistered)
	prometheus.MustRegister(DispatchRequestsTotal)
	prometheus.MustRegister(JobDuration)
	prometheus.MustRegister(PartitionRetriesTotal)
	prometheus.MustRegister(WorkerRequestsTotal)
	prometheus.MustRegister(WorkerRequestDuration)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations and recording them to a
// histogram once the operation completes.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
