package master

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/outpost-systems/hivemind/pkg/log"
)

// Run binds the master's HTTP listener on port and blocks until ctx is
// cancelled, then shuts down gracefully.
func Run(ctx context.Context, port string, handler http.Handler) error {
	srv := &http.Server{Addr: ":" + port, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		log.Info(fmt.Sprintf("master listening on %s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
