package registry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newPingServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func addrOf(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestTakeNextRoundRobinFairness(t *testing.T) {
	r := New()
	servers := make([]*httptest.Server, 3)
	for i := range servers {
		servers[i] = newPingServer(t)
		defer servers[i].Close()
		r.Add(addrOf(t, servers[i]))
	}

	counts := map[string]int{}
	const rounds = 30
	for i := 0; i < rounds; i++ {
		w, ok := r.TakeNext()
		require.True(t, ok)
		counts[w.Address]++
	}

	for addr, c := range counts {
		require.InDeltaf(t, rounds/3, c, 1, "worker %s count %d out of fairness range", addr, c)
	}
}

func TestAddIdempotent(t *testing.T) {
	r := New()
	srv := newPingServer(t)
	defer srv.Close()
	addr := addrOf(t, srv)

	r.Add(addr)
	require.Equal(t, 1, r.Size())
	r.Add(addr)
	require.Equal(t, 1, r.Size())
}

func TestRemoveDropsWorker(t *testing.T) {
	r := New()
	srv := newPingServer(t)
	defer srv.Close()
	addr := addrOf(t, srv)

	r.Add(addr)
	require.Equal(t, 1, r.Size())
	r.Remove(addr)
	require.Equal(t, 0, r.Size())
	_, ok := r.TakeNext()
	require.False(t, ok)
}

func TestMonitorCancelsOnFailure(t *testing.T) {
	deadAddr := "127.0.0.1:1" // nothing listens here; dials fail fast

	r := New()
	w := r.Add(deadAddr)

	select {
	case <-w.Done():
		// cancelled, as expected
	case <-time.After(3 * time.Second):
		t.Fatal("expected worker cancellation after failed ping")
	}

	require.Equal(t, 0, r.Size())
}
