package dispatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/outpost-systems/hivemind/pkg/registry"
)

func TestAtomicNoHealthyWorker(t *testing.T) {
	d := New(registry.New())
	_, err := d.Atomic(context.Background(), Outbound{Path: "/sleep?seconds=0"})
	require.Error(t, err)
}

func TestAtomicForwardsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	reg := registry.New()
	reg.Add(strings.TrimPrefix(srv.URL, "http://"))
	d := New(reg)

	res, err := d.Atomic(context.Background(), Outbound{Path: "/reverse?text=abc"})
	require.NoError(t, err)
	require.Equal(t, 200, res.StatusCode)
	require.Equal(t, "ok", string(res.Body))
}

func TestPartialUsesSurvivingWorkerAfterRemoval(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer good.Close()

	reg := registry.New()
	deadWorker := reg.Add("127.0.0.1:1") // unreachable
	reg.Add(strings.TrimPrefix(good.URL, "http://"))
	d := New(reg)

	// Simulate the health monitor declaring the dead worker gone.
	reg.Remove(deadWorker.Address)

	res, err := d.Partial(context.Background(), Outbound{Path: "/countpartial?name=a&part=0&total=1"}, "countwords")
	require.NoError(t, err)
	require.Equal(t, 200, res.StatusCode)
}
