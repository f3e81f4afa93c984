// Package registry implements the worker registry (C2) and its per-worker
// health monitor (C3): an order-preserving map from address to worker,
// a round-robin cursor taken modulo size at read time, and one persistent
// ping loop per worker that cancels and removes it on failure.
package registry

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/outpost-systems/hivemind/pkg/health"
	"github.com/outpost-systems/hivemind/pkg/log"
	"github.com/outpost-systems/hivemind/pkg/metrics"
)

const (
	pingInterval = 2 * time.Second
	pingTimeout  = 5 * time.Second
)

// Worker is one registered compute node: its address and the cancellation
// context that fires when the health monitor declares it dead.
type Worker struct {
	Address string
	ctx     context.Context
	cancel  context.CancelFunc
}

// Done returns a channel that closes when this worker is declared dead.
func (w *Worker) Done() <-chan struct{} { return w.ctx.Done() }

// Context returns the worker's cancellation context, for racing an
// in-flight dispatch call against worker death (C4).
func (w *Worker) Context() context.Context { return w.ctx }

type entry struct {
	worker  *Worker
	elem    *list.Element // position in order for round-robin/get(index)
	stopMon context.CancelFunc
}

// Registry is the thread-safe, order-preserving worker map described in
// spec §3/§4.2. The zero value is not usable; use New.
type Registry struct {
	mu     sync.RWMutex
	byAddr map[string]*entry
	order  *list.List // of *entry, insertion order preserved across add/remove
	cursor uint64
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byAddr: make(map[string]*entry),
		order:  list.New(),
	}
}

// Add registers (or re-registers) a worker at address. Re-registration
// replaces the cancellation handle and restarts the monitor but keeps the
// address's position in insertion order; in-flight dispatches on the prior
// handle are not cancelled (spec §4.6).
func (r *Registry) Add(address string) *Worker {
	r.mu.Lock()

	if old, ok := r.byAddr[address]; ok {
		old.stopMon()
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{Address: address, ctx: ctx, cancel: cancel}
	e := &entry{worker: w}

	if old, ok := r.byAddr[address]; ok {
		e.elem = old.elem
		e.elem.Value = e
	} else {
		e.elem = r.order.PushBack(e)
	}
	r.byAddr[address] = e
	size := r.order.Len()
	r.mu.Unlock()

	metrics.WorkersRegistered.Set(float64(size))

	monCtx, monCancel := context.WithCancel(context.Background())
	e.stopMon = monCancel
	go r.monitor(monCtx, w)

	return w
}

// Remove drops the entry for address. It does not cancel the worker's
// context; cancellation is the monitor's responsibility (spec §4.2).
func (r *Registry) Remove(address string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byAddr[address]
	if !ok {
		return
	}
	r.order.Remove(e.elem)
	delete(r.byAddr, address)
	metrics.WorkersRegistered.Set(float64(r.order.Len()))
}

// TakeNext returns the worker at cursor mod size, then advances the
// cursor. The cursor is taken fresh at read time (not maintained as a
// rotating index) so concurrent removals cannot desynchronize it (spec §9).
func (r *Registry) TakeNext() (*Worker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := r.order.Len()
	if size == 0 {
		return nil, false
	}
	idx := int(r.cursor % uint64(size))
	r.cursor++
	return r.nthLocked(idx), true
}

// Get returns the worker at a specific position, or false if out of range.
func (r *Registry) Get(index int) (*Worker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= r.order.Len() {
		return nil, false
	}
	return r.nthLocked(index), true
}

// Size returns the current worker count.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.order.Len()
}

func (r *Registry) nthLocked(n int) *Worker {
	e := r.order.Front()
	for i := 0; i < n; i++ {
		e = e.Next()
	}
	return e.Value.(*entry).worker
}

// monitor pings the worker every pingInterval with a pingTimeout budget.
// On the first failure it cancels the worker's context and removes it
// from the registry, then exits (spec §4.3: no retries at this layer).
func (r *Registry) monitor(ctx context.Context, w *Worker) {
	logger := log.WithWorker(w.Address)
	checker := health.NewHTTPChecker("http://" + w.Address + "/ping").WithTimeout(pingTimeout)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		checkCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		result := checker.Check(checkCtx)
		cancel()

		if !result.Healthy {
			logger.Warn().Msg("worker failed health check, removing")
			w.cancel()
			r.Remove(w.Address)
			return
		}

		select {
		case <-time.After(pingInterval):
		case <-ctx.Done():
			return
		}
	}
}
