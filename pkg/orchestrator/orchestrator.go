// Package orchestrator implements C5: planning the parallel jobs
// (countwords, matrixmult) and the fire-and-report loadtest helper. It
// drives the partition fan-out through pkg/dispatch's Partial variant and
// the final aggregation through Atomic, per spec §4.5.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/outpost-systems/hivemind/internal/apperr"
	"github.com/outpost-systems/hivemind/pkg/dispatch"
	"github.com/outpost-systems/hivemind/pkg/log"
	"github.com/outpost-systems/hivemind/pkg/metrics"
	"github.com/outpost-systems/hivemind/pkg/registry"
	"github.com/outpost-systems/hivemind/pkg/store"
	"github.com/outpost-systems/hivemind/pkg/types"
)

// Orchestrator plans and runs compound jobs across the worker pool.
type Orchestrator struct {
	registry *registry.Registry
	dispatch *dispatch.Dispatcher
	store    store.Store
}

func New(reg *registry.Registry, d *dispatch.Dispatcher, s store.Store) *Orchestrator {
	return &Orchestrator{registry: reg, dispatch: d, store: s}
}

// CountWords fans a word-count job out across every currently registered
// worker, retrying each partition until it succeeds or the pool empties,
// then dispatches the aggregation request (spec §4.5).
func (o *Orchestrator) CountWords(ctx context.Context, name string) (*dispatch.Result, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.JobDuration, "countwords")

	n := o.registry.Size()
	if n == 0 {
		return nil, apperr.PoolExhausted("Unable to process your request at this time.\nTry again later.")
	}

	if err := o.runPartitions(ctx, n, "countwords", func(part int) dispatch.Outbound {
		return dispatch.Outbound{
			Method: "GET",
			Path:   fmt.Sprintf("/countpartial?name=%s&part=%d&total=%d", name, part, n),
		}
	}); err != nil {
		return nil, err
	}

	return o.dispatch.Atomic(ctx, dispatch.Outbound{
		Method: "GET",
		Path:   fmt.Sprintf("/counttotal?name=%s", name),
	})
}

// MatrixMult validates and stores the job input, fans the r*c cell
// computations out across the pool, then dispatches the aggregation
// request that assembles and returns the result matrix (spec §4.5).
func (o *Orchestrator) MatrixMult(ctx context.Context, in types.MatrixMultInput) (*dispatch.Result, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.JobDuration, "matrixmult")

	if err := in.Validate(); err != nil {
		return nil, apperr.Client(err.Error())
	}

	if o.registry.Size() == 0 {
		return nil, apperr.PoolExhausted("Unable to process your request at this time.\nTry again later.")
	}

	job := uuid.NewString()
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, apperr.StoreUnavailable(err)
	}
	if err := o.store.PutInput(ctx, job, payload); err != nil {
		return nil, apperr.StoreUnavailable(err)
	}

	r := in.MatrixA.RowCount()
	c := in.MatrixB.ColCount()

	cells := make([]matrixCell, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			cells = append(cells, matrixCell{row: i, col: j})
		}
	}

	if err := o.runCells(ctx, cells, job, "matrixmult"); err != nil {
		return nil, err
	}

	return o.dispatch.Atomic(ctx, dispatch.Outbound{
		Method: "GET",
		Path:   fmt.Sprintf("/matrixtotal?job=%s", job),
	})
}

// runPartitions schedules n independent partition tasks, each retried via
// Partial dispatch until it succeeds or the pool is exhausted. The whole
// set aborts on the first exhaustion (spec §4.5's "cancelled en masse").
func (o *Orchestrator) runPartitions(ctx context.Context, n int, jobType string, build func(part int) dispatch.Outbound) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, n)

	for part := 0; part < n; part++ {
		wg.Add(1)
		go func(part int) {
			defer wg.Done()
			_, err := o.dispatch.Partial(runCtx, build(part), jobType)
			if err != nil {
				errCh <- err
				cancel()
			}
		}(part)
	}

	wg.Wait()
	close(errCh)
	if err, ok := <-errCh; ok {
		return err
	}
	return nil
}

type matrixCell struct{ row, col int }

// runCells is runPartitions's matrix-shaped sibling: one task per (row,
// column) pair instead of one per linear partition index.
func (o *Orchestrator) runCells(ctx context.Context, cells []matrixCell, job string, jobType string) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, len(cells))

	for _, cl := range cells {
		wg.Add(1)
		go func(row, col int) {
			defer wg.Done()
			req := dispatch.Outbound{
				Method: "GET",
				Path:   fmt.Sprintf("/matrixpartial?job=%s&row=%d&column=%d", job, row, col),
			}
			_, err := o.dispatch.Partial(runCtx, req, jobType)
			if err != nil {
				errCh <- err
				cancel()
			}
		}(cl.row, cl.col)
	}

	wg.Wait()
	close(errCh)
	if err, ok := <-errCh; ok {
		return err
	}
	return nil
}

// LoadTest fires `tasks` atomic /sleep dispatches without waiting for any
// of them to complete, per spec §9's fire-and-report decision: the client
// sees a fast response regardless of how long the simulated work runs.
func (o *Orchestrator) LoadTest(ctx context.Context, tasks int, sleepSeconds int) {
	for i := 0; i < tasks; i++ {
		go func() {
			req := dispatch.Outbound{
				Method: "GET",
				Path:   fmt.Sprintf("/sleep?seconds=%d", sleepSeconds),
			}
			if _, err := o.dispatch.Atomic(context.Background(), req); err != nil {
				log.Errorf("loadtest sub-task failed", err)
			}
		}()
	}
}
