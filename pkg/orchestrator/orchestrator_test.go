package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/outpost-systems/hivemind/pkg/dispatch"
	"github.com/outpost-systems/hivemind/pkg/registry"
	"github.com/outpost-systems/hivemind/pkg/types"
)

// fakeStore is an in-memory stand-in for pkg/store.Store used only to
// exercise the orchestrator's input-persistence call.
type fakeStore struct {
	mu    sync.Mutex
	input map[string][]byte
}

func newFakeStore() *fakeStore { return &fakeStore{input: make(map[string][]byte)} }

func (f *fakeStore) PutInput(ctx context.Context, job string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input[job] = payload
	return nil
}
func (f *fakeStore) GetInput(ctx context.Context, job string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input[job], nil
}
func (f *fakeStore) PutResult(ctx context.Context, job string, payload []byte) error { return nil }
func (f *fakeStore) PutMatrixPartial(ctx context.Context, job string, row, column int, payload []byte) error {
	return nil
}
func (f *fakeStore) GetAllMatrixPartials(ctx context.Context, job string) ([][]byte, error) {
	return nil, nil
}
func (f *fakeStore) PutCountPartial(ctx context.Context, file string, part int, count int) error {
	return nil
}
func (f *fakeStore) GetAllCountPartials(ctx context.Context, file string) ([]int, error) {
	return nil, nil
}
func (f *fakeStore) DeleteCountPartials(ctx context.Context, file string) error { return nil }
func (f *fakeStore) PutCountResult(ctx context.Context, file string, total int) error { return nil }
func (f *fakeStore) ClearJob(ctx context.Context, job string) error            { return nil }
func (f *fakeStore) Close() error                                             { return nil }

// stubWorker serves every partition/aggregate route with canned 200 OK
// bodies so the orchestrator's fan-out/fan-in logic can be tested without
// real worker processes.
func stubWorker(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		switch r.URL.Path {
		case "/counttotal":
			_, _ = w.Write([]byte("file=x,total=23"))
		case "/matrixtotal":
			_, _ = w.Write([]byte(`{"matrix":[[19,22],[43,50]]}`))
		default:
			_, _ = w.Write([]byte("ok"))
		}
	}))
}

func addrOf(srv *httptest.Server) string {
	u, _ := url.Parse(srv.URL)
	return u.Host
}

func TestCountWordsNoWorkersReturnsPoolExhausted(t *testing.T) {
	reg := registry.New()
	d := dispatch.New(reg)
	o := New(reg, d, newFakeStore())

	_, err := o.CountWords(context.Background(), "file.txt")
	require.Error(t, err)
}

func TestCountWordsAggregatesAcrossWorkers(t *testing.T) {
	srv := stubWorker(t)
	defer srv.Close()

	reg := registry.New()
	reg.Add(addrOf(srv))
	d := dispatch.New(reg)
	o := New(reg, d, newFakeStore())

	res, err := o.CountWords(context.Background(), "file.txt")
	require.NoError(t, err)
	require.Equal(t, "file=x,total=23", string(res.Body))
}

func TestMatrixMultValidatesInput(t *testing.T) {
	reg := registry.New()
	d := dispatch.New(reg)
	o := New(reg, d, newFakeStore())

	bad := types.MatrixMultInput{
		MatrixA: types.Matrix{Rows: [][]int64{{1, 2}, {3}}},
		MatrixB: types.Matrix{Rows: [][]int64{{1}, {2}}},
	}
	_, err := o.MatrixMult(context.Background(), bad)
	require.Error(t, err)
}

func TestMatrixMultDispatchesPartialsAndAggregate(t *testing.T) {
	srv := stubWorker(t)
	defer srv.Close()

	reg := registry.New()
	reg.Add(addrOf(srv))
	d := dispatch.New(reg)
	o := New(reg, d, newFakeStore())

	in := types.MatrixMultInput{
		MatrixA: types.Matrix{Rows: [][]int64{{1, 2}, {3, 4}}},
		MatrixB: types.Matrix{Rows: [][]int64{{5, 6}, {7, 8}}},
	}
	res, err := o.MatrixMult(context.Background(), in)
	require.NoError(t, err)

	var result types.Matrix
	require.NoError(t, json.Unmarshal(res.Body, &result))
	require.Equal(t, [][]int64{{19, 22}, {43, 50}}, result.Rows)
}

func TestLoadTestFiresWithoutAwaiting(t *testing.T) {
	const wantHits = 5
	hitCh := make(chan struct{}, wantHits)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hitCh <- struct{}{}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := registry.New()
	reg.Add(addrOf(srv))
	d := dispatch.New(reg)
	o := New(reg, d, newFakeStore())

	before := time.Now()
	o.LoadTest(context.Background(), wantHits, 0)
	require.Less(t, time.Since(before), 500*time.Millisecond, "LoadTest must return without waiting for sub-requests")

	for i := 0; i < wantHits; i++ {
		select {
		case <-hitCh:
		case <-time.After(2 * time.Second):
			t.Fatalf("expected %d fired requests, only observed %d", wantHits, i)
		}
	}
}
