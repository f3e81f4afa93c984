// Package worker implements the worker-side job handler (C8): the leaf
// compute routes, the word-count/matrix partition routes, status, ping,
// and the heartbeat goroutine that keeps the worker registered with the
// master.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/outpost-systems/hivemind/pkg/log"
	"github.com/outpost-systems/hivemind/pkg/metrics"
	"github.com/outpost-systems/hivemind/pkg/store"
	"github.com/outpost-systems/hivemind/pkg/types"
)

// poolSize mirrors the spec's "fixed-size pool of OS threads (4)" worker
// concurrency model (spec §5): at most this many requests are served
// concurrently, and each concurrent slot has a stable id used as the
// Status record's thread key.
const poolSize = 4

// Config configures a Worker server.
type Config struct {
	Port         string
	MasterSocket string
	SlaveCode    string
	Store        store.Store
}

// Worker serves the worker-side HTTP routes and reports itself to the
// master on a heartbeat.
type Worker struct {
	cfg    Config
	status *statusTracker
	slots  chan int
	srv    *http.Server
}

func New(cfg Config) *Worker {
	slots := make(chan int, poolSize)
	for i := 0; i < poolSize; i++ {
		slots <- i
	}
	return &Worker{
		cfg:    cfg,
		status: newStatusTracker(),
		slots:  slots,
	}
}

// Start binds the HTTP listener and begins the heartbeat loop. It blocks
// until ctx is cancelled, then shuts down gracefully.
func (w *Worker) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", w.handle)
	w.srv = &http.Server{Addr: ":" + w.cfg.Port, Handler: mux}

	go w.heartbeatLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info(fmt.Sprintf("worker listening on %s", w.srv.Addr))
		if err := w.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return w.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// handle acquires a pool slot (blocking if all poolSize are busy, matching
// the fixed-thread-pool concurrency model), tags it busy with the route
// name, dispatches, then releases it.
func (w *Worker) handle(rw http.ResponseWriter, r *http.Request) {
	route := r.URL.Path

	// /metrics, /health, /ready, and /live are scraped/probed out-of-band
	// and shouldn't compete for the fixed-size compute pool with real work.
	switch route {
	case "/metrics":
		metrics.Handler().ServeHTTP(rw, r)
		return
	case "/health":
		metrics.HealthHandler()(rw, r)
		return
	case "/ready":
		metrics.ReadyHandler()(rw, r)
		return
	case "/live":
		metrics.LivenessHandler()(rw, r)
		return
	}

	slot := <-w.slots
	w.status.updateThreadStatus(slot, true, route)
	log.Debug(fmt.Sprintf("route: %s", route))

	timer := metrics.NewTimer()
	defer func() {
		w.status.updateThreadStatus(slot, false, "")
		w.slots <- slot
		metrics.WorkerRequestsTotal.WithLabelValues(route).Inc()
		timer.ObserveDurationVec(metrics.WorkerRequestDuration, route)
	}()

	switch route {
	case "/ping":
		w.handlePing(rw, r)
	case "/status":
		w.handleStatus(rw, r)
	case "/reverse":
		w.handleReverse(rw, r)
	case "/toupper":
		w.handleUpper(rw, r)
	case "/hash":
		w.handleHash(rw, r)
	case "/fibonacci":
		w.handleFibonacci(rw, r)
	case "/random":
		w.handleRandom(rw, r)
	case "/simulate":
		w.handleSimulate(rw, r)
	case "/sleep":
		w.handleSleep(rw, r)
	case "/timestamp":
		w.handleTimestamp(rw, r)
	case "/createfile":
		w.handleCreateFile(rw, r)
	case "/deletefile":
		w.handleDeleteFile(rw, r)
	case "/countpartial":
		w.handleCountPartial(rw, r)
	case "/counttotal":
		w.handleCountTotal(rw, r)
	case "/matrixpartial":
		w.handleMatrixPartial(rw, r)
	case "/matrixtotal":
		w.handleMatrixTotal(rw, r)
	default:
		http.Error(rw, "", http.StatusNotFound)
	}
}

func (w *Worker) handlePing(rw http.ResponseWriter, r *http.Request) {
	validRequest(rw, "")
}

func (w *Worker) handleStatus(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(rw, "", http.StatusMethodNotAllowed)
		return
	}
	body, err := json.Marshal(w.status.snapshot())
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	rw.Header().Set("Content-Length", strconv.Itoa(len(body)))
	rw.WriteHeader(http.StatusOK)
	_, _ = rw.Write(body)
}

func (w *Worker) handleReverse(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(rw, "", http.StatusMethodNotAllowed)
		return
	}
	text, ok := queryParam(r, "text")
	if !ok {
		invalidRequest(rw, "Invalid query params provided!")
		return
	}
	validRequest(rw, reverseText(text))
}

func (w *Worker) handleUpper(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(rw, "", http.StatusMethodNotAllowed)
		return
	}
	text, ok := queryParam(r, "text")
	if !ok {
		invalidRequest(rw, "Invalid query params provided!")
		return
	}
	validRequest(rw, upperText(text))
}

func (w *Worker) handleHash(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(rw, "", http.StatusMethodNotAllowed)
		return
	}
	text, ok := queryParam(r, "text")
	if !ok {
		invalidRequest(rw, "Invalid query params provided!")
		return
	}
	validRequest(rw, hashText(text))
}

func (w *Worker) handleFibonacci(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(rw, "", http.StatusMethodNotAllowed)
		return
	}
	raw, ok := queryParam(r, "num")
	if !ok {
		invalidRequest(rw, "Invalid query params provided!")
		return
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		invalidRequest(rw, "Unable to parse num param!")
		return
	}
	v, ok := fibonacci(n)
	if !ok {
		http.Error(rw, "", http.StatusInsufficientStorage)
		return
	}
	validRequest(rw, strconv.FormatUint(v, 10))
}

func (w *Worker) handleRandom(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(rw, "", http.StatusMethodNotAllowed)
		return
	}
	countS, ok1 := queryParam(r, "count")
	minS, ok2 := queryParam(r, "min")
	maxS, ok3 := queryParam(r, "max")
	if !(ok1 && ok2 && ok3) {
		invalidRequest(rw, "Invalid query params provided!")
		return
	}
	count, err := strconv.Atoi(countS)
	if err != nil {
		invalidRequest(rw, "Unable to parse count!")
		return
	}
	minV, err := strconv.ParseInt(minS, 10, 32)
	if err != nil {
		invalidRequest(rw, "Unable to parse min!")
		return
	}
	maxV, err := strconv.ParseInt(maxS, 10, 32)
	if err != nil {
		invalidRequest(rw, "Unable to parse max!")
		return
	}
	vals, err := randomInts(count, int32(minV), int32(maxV))
	if err != nil {
		invalidRequest(rw, err.Error())
		return
	}
	validRequest(rw, fmt.Sprintf("%v", vals))
}

func (w *Worker) handleSimulate(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(rw, "", http.StatusMethodNotAllowed)
		return
	}
	task, ok1 := queryParam(r, "task")
	secS, ok2 := queryParam(r, "seconds")
	if !(ok1 && ok2) {
		invalidRequest(rw, "Invalid query params provided!")
		return
	}
	seconds, err := strconv.ParseUint(secS, 10, 64)
	if err != nil {
		invalidRequest(rw, "Unable to parse seconds param!")
		return
	}
	validRequest(rw, simulateTask(task, seconds))
}

func (w *Worker) handleSleep(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(rw, "", http.StatusMethodNotAllowed)
		return
	}
	secS, ok := queryParam(r, "seconds")
	if !ok {
		invalidRequest(rw, "Invalid query params provided!")
		return
	}
	seconds, err := strconv.ParseUint(secS, 10, 64)
	if err != nil {
		invalidRequest(rw, "Unable to parse seconds param!")
		return
	}
	validRequest(rw, sleepSeconds(seconds))
}

func (w *Worker) handleTimestamp(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(rw, "", http.StatusMethodNotAllowed)
		return
	}
	validRequest(rw, timestampNow())
}

func (w *Worker) handleCreateFile(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "", http.StatusMethodNotAllowed)
		return
	}
	name, ok1 := queryParam(r, "name")
	content, ok2 := queryParam(r, "content")
	repeatS, ok3 := queryParam(r, "repeat")
	if !(ok1 && ok2 && ok3) {
		invalidRequest(rw, "Invalid query params provided!")
		return
	}
	repeat, err := strconv.ParseUint(repeatS, 10, 64)
	if err != nil {
		invalidRequest(rw, "Unable to parse repeat param!")
		return
	}
	if err := createFile(name, content, repeat); err != nil {
		if errors.Is(err, os.ErrExist) {
			invalidRequest(rw, "File already exists!")
			return
		}
		http.Error(rw, "", http.StatusInternalServerError)
		return
	}
	rw.WriteHeader(http.StatusOK)
}

func (w *Worker) handleDeleteFile(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(rw, "", http.StatusMethodNotAllowed)
		return
	}
	name, ok := queryParam(r, "name")
	if !ok {
		invalidRequest(rw, "Invalid query params provided!")
		return
	}
	if err := deleteFile(name); err != nil {
		invalidRequest(rw, "Unable to delete file!")
		return
	}
	rw.WriteHeader(http.StatusOK)
}

// handleCountPartial reads archivos/{name}, counts the words in the
// partition (part, total), writes the count to the store, and returns the
// original's "file=…,part=…,words=…" format (spec §4.8).
func (w *Worker) handleCountPartial(rw http.ResponseWriter, r *http.Request) {
	name, _ := queryParam(r, "name")
	partS, _ := queryParam(r, "part")
	totalS, _ := queryParam(r, "total")
	part, _ := strconv.Atoi(partS)
	total, _ := strconv.Atoi(totalS)

	text, err := readFile(name)
	if err != nil {
		invalidRequest(rw, "Could not read file")
		return
	}

	count := countPartitionWords(text, part, total)
	if err := w.cfg.Store.PutCountPartial(r.Context(), name, part, count); err != nil {
		redisDownResponse(rw, err)
		return
	}
	validRequest(rw, fmt.Sprintf("file=%s,part=%s,words=%d", name, partS, count))
}

// handleCountTotal sums all partials, stores the total, deletes the
// per-part keys, and returns "file=…,total=…" (spec §4.8).
func (w *Worker) handleCountTotal(rw http.ResponseWriter, r *http.Request) {
	name, _ := queryParam(r, "name")

	values, err := w.cfg.Store.GetAllCountPartials(r.Context(), name)
	if err != nil {
		redisDownResponse(rw, err)
		return
	}

	total := 0
	for _, v := range values {
		total += v
	}

	if err := w.cfg.Store.DeleteCountPartials(r.Context(), name); err != nil {
		log.Errorf("failed to delete count partials", err)
	}
	if err := w.cfg.Store.PutCountResult(r.Context(), name, total); err != nil {
		log.Errorf("failed to persist count result", err)
	}

	validRequest(rw, fmt.Sprintf("file=%s,total=%d", name, total))
}

// handleMatrixPartial reads the job's input matrices, computes one output
// cell, stores it, and returns "row=…, column=…, value=…" — note the
// space-after-comma formatting differs from countPartial's, preserved
// as observed in the original.
func (w *Worker) handleMatrixPartial(rw http.ResponseWriter, r *http.Request) {
	job, _ := queryParam(r, "job")
	rowS, _ := queryParam(r, "row")
	colS, _ := queryParam(r, "column")
	row, _ := strconv.Atoi(rowS)
	column, _ := strconv.Atoi(colS)

	in, err := w.loadMatrixInput(r.Context(), job)
	if err != nil {
		redisDownResponse(rw, err)
		return
	}

	value := matrixCellValue(in, row, column)
	cell := types.MatrixCell{Row: row, Column: column, Value: value}
	payload, _ := json.Marshal(cell)
	if err := w.cfg.Store.PutMatrixPartial(r.Context(), job, row, column, payload); err != nil {
		redisDownResponse(rw, err)
		return
	}

	validRequest(rw, fmt.Sprintf("row=%d, column=%d, value=%d", row, column, value))
}

// handleMatrixTotal reads the input and all partials, assembles the dense
// result matrix, stores it, clears every job-scoped key, and returns the
// JSON-encoded result (spec §4.8).
func (w *Worker) handleMatrixTotal(rw http.ResponseWriter, r *http.Request) {
	job, _ := queryParam(r, "job")

	in, err := w.loadMatrixInput(r.Context(), job)
	if err != nil {
		redisDownResponse(rw, err)
		return
	}

	rawCells, err := w.cfg.Store.GetAllMatrixPartials(r.Context(), job)
	if err != nil {
		redisDownResponse(rw, err)
		return
	}
	cells := make([]types.MatrixCell, 0, len(rawCells))
	for _, raw := range rawCells {
		var c types.MatrixCell
		if err := json.Unmarshal(raw, &c); err != nil {
			continue
		}
		cells = append(cells, c)
	}

	rows := in.MatrixA.RowCount()
	cols := in.MatrixB.ColCount()
	result := assembleMatrix(rows, cols, cells)

	payload, err := json.Marshal(result)
	if err != nil {
		http.Error(rw, "", http.StatusInternalServerError)
		return
	}
	if err := w.cfg.Store.PutResult(r.Context(), job, payload); err != nil {
		redisDownResponse(rw, err)
		return
	}
	if err := w.cfg.Store.ClearJob(r.Context(), job); err != nil {
		log.Errorf("failed to clear job keys", err)
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	rw.WriteHeader(http.StatusOK)
	_, _ = rw.Write(payload)
}

func (w *Worker) loadMatrixInput(ctx context.Context, job string) (types.MatrixMultInput, error) {
	raw, err := w.cfg.Store.GetInput(ctx, job)
	if err != nil {
		return types.MatrixMultInput{}, err
	}
	var in types.MatrixMultInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return types.MatrixMultInput{}, err
	}
	return in, nil
}

func queryParam(r *http.Request, key string) (string, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return "", false
	}
	return v, true
}

func invalidRequest(rw http.ResponseWriter, msg string) {
	rw.WriteHeader(http.StatusBadRequest)
	_, _ = rw.Write([]byte(msg))
}

func validRequest(rw http.ResponseWriter, msg string) {
	rw.WriteHeader(http.StatusOK)
	_, _ = rw.Write([]byte(msg))
}

func redisDownResponse(rw http.ResponseWriter, err error) {
	log.Errorf("store unavailable", err)
	rw.WriteHeader(http.StatusInternalServerError)
	_, _ = rw.Write([]byte(err.Error()))
}
