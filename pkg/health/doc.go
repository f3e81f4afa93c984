/*
Package health implements the worker liveness probe (C3): a Checker
interface with a single HTTP implementation that pkg/registry's monitor
goroutine uses to ping each worker's /ping route.

# Usage

	checker := health.NewHTTPChecker("http://" + addr + "/ping").WithTimeout(5 * time.Second)
	result := checker.Check(ctx)
	if !result.Healthy {
		// registry removes the worker and fires its cancellation handle
	}

There is a single failure mode: the first failed check removes the
worker. No grace period, no consecutive-failure threshold — the cluster
favors prompt partition retry over tolerating a flaky worker.
*/
package health
