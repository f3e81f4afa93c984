/*
Package metrics provides Prometheus metrics collection and exposition for
the cluster master and its workers.

Metrics are registered at package init via prometheus.MustRegister and
exposed over HTTP via Handler() for scraping.

# Cluster metrics (master)

	cluster_workers_registered:
	  - Type: Gauge
	  - Description: current registry size

	cluster_dispatch_requests_total{route, outcome}:
	  - Type: Counter
	  - Description: dispatch attempts by route and outcome (ok, failed, pool_exhausted)

	cluster_job_duration_seconds{job_type}:
	  - Type: Histogram
	  - Description: compound job latency by job type (countwords, matrixmult)

	cluster_partition_retries_total{job_type}:
	  - Type: Counter
	  - Description: partition retries consumed by worker death during fan-out

# Worker metrics

	worker_requests_total{route}:
	  - Type: Counter
	  - Description: requests handled by this worker, by route

	worker_request_duration_seconds{route}:
	  - Type: Histogram
	  - Description: request handling latency, by route

# Usage

	metrics.WorkersRegistered.Set(float64(registry.Size()))
	metrics.DispatchRequestsTotal.WithLabelValues("/countpartial", "ok").Inc()

	timer := metrics.NewTimer()
	// ... do work ...
	timer.ObserveDurationVec(metrics.JobDuration, "countwords")

# Health endpoints

HealthHandler, ReadyHandler, and LivenessHandler expose /health, /ready,
and /live respectively; RegisterComponent/UpdateComponent feed them.
*/
package metrics
