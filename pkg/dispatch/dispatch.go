// Package dispatch implements the three dispatch variants of C4: atomic
// (single target, no retry), specific (caller-chosen worker), and partial
// (retry-until-success-or-pool-exhaustion, used inside the orchestrator).
package dispatch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/outpost-systems/hivemind/internal/apperr"
	"github.com/outpost-systems/hivemind/pkg/metrics"
	"github.com/outpost-systems/hivemind/pkg/registry"
)

// routeLabel strips the query string off an Outbound path so it stays a
// low-cardinality metric label (spec §6.1).
func routeLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}

// Outbound is the request to forward to a worker: method, path (with any
// query string already appended), and an optional body.
type Outbound struct {
	Method      string
	Path        string
	Body        []byte
	ContentType string
}

// Result is an opaque response forwarded verbatim to the client: the
// tagged-variant "response or buffer" notion from spec §9, collapsed to a
// single struct since every response we forward is bytes + status.
type Result struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Dispatcher sends requests to workers chosen from a Registry, racing each
// HTTP round trip against the target worker's cancellation context.
type Dispatcher struct {
	registry *registry.Registry
	client   *http.Client
}

func New(reg *registry.Registry) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Atomic picks the next worker via round-robin and forwards the request
// once. It never retries on worker death: atomic operations may have side
// effects (spec §4.4, §7).
func (d *Dispatcher) Atomic(ctx context.Context, req Outbound) (*Result, error) {
	route := routeLabel(req.Path)
	w, ok := d.registry.TakeNext()
	if !ok {
		metrics.DispatchRequestsTotal.WithLabelValues(route, "pool_exhausted").Inc()
		return nil, apperr.PoolExhausted("Unable to process your request at this time.\nTry again later.")
	}
	res, err := d.send(ctx, w, req)
	if err != nil {
		metrics.DispatchRequestsTotal.WithLabelValues(route, "failed").Inc()
		return nil, apperr.PoolExhausted("Unable to process your request at this time!")
	}
	metrics.DispatchRequestsTotal.WithLabelValues(route, "ok").Inc()
	return res, nil
}

// Specific bypasses round-robin and addresses exactly the given worker;
// used by the status aggregator (C7) to poll every worker in turn.
func (d *Dispatcher) Specific(ctx context.Context, w *registry.Worker, req Outbound) (*Result, error) {
	route := routeLabel(req.Path)
	res, err := d.send(ctx, w, req)
	if err != nil {
		metrics.DispatchRequestsTotal.WithLabelValues(route, "failed").Inc()
		return nil, err
	}
	metrics.DispatchRequestsTotal.WithLabelValues(route, "ok").Inc()
	return res, nil
}

// Partial is the fan-out retry engine (C5): it loops over fresh workers
// until the request completes successfully on some worker, the pool is
// exhausted, or ctx is cancelled. jobType labels the retry counter (spec
// §6.1); pass "" when the caller has no job-type context.
func (d *Dispatcher) Partial(ctx context.Context, req Outbound, jobType string) (*Result, error) {
	route := routeLabel(req.Path)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w, ok := d.registry.TakeNext()
		if !ok {
			metrics.DispatchRequestsTotal.WithLabelValues(route, "pool_exhausted").Inc()
			return nil, apperr.PoolExhausted("pool exhausted")
		}
		res, err := d.send(ctx, w, req)
		if err != nil {
			// this worker died or refused; try the next one
			metrics.DispatchRequestsTotal.WithLabelValues(route, "failed").Inc()
			metrics.PartitionRetriesTotal.WithLabelValues(jobType).Inc()
			continue
		}
		metrics.DispatchRequestsTotal.WithLabelValues(route, "ok").Inc()
		return res, nil
	}
}

// send races an HTTP round trip to the worker against the worker's
// cancellation context, returning an error if either the request fails or
// the worker is declared dead first.
func (d *Dispatcher) send(ctx context.Context, w *registry.Worker, req Outbound) (*Result, error) {
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		method := req.Method
		if method == "" {
			method = http.MethodGet
		}
		var body io.Reader
		if req.Body != nil {
			body = bytes.NewReader(req.Body)
		}
		httpReq, err := http.NewRequestWithContext(reqCtx, method, "http://"+w.Address+req.Path, body)
		if err != nil {
			done <- outcome{err: err}
			return
		}
		if req.ContentType != "" {
			httpReq.Header.Set("Content-Type", req.ContentType)
		}
		resp, err := d.client.Do(httpReq)
		if err != nil {
			done <- outcome{err: err}
			return
		}
		defer resp.Body.Close()
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			done <- outcome{err: err}
			return
		}
		done <- outcome{res: &Result{
			StatusCode:  resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Body:        respBody,
		}}
	}()

	select {
	case o := <-done:
		return o.res, o.err
	case <-w.Done():
		return nil, context.Canceled
	}
}
