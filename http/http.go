package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

// DefaultShutdownTimeout is how long servers are given to finish their
// requests once the context is done.
const DefaultShutdownTimeout = time.Second * 10

// ListenAndServe runs the given servers until ctx is done, then shuts them down
// together. Servers still busy after shutdownTimeout are closed. It returns
// once every server stopped.
func ListenAndServe(ctx context.Context, shutdownTimeout time.Duration, servers ...*http.Server) {
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}

	var wg sync.WaitGroup

	for _, s := range servers {
		wg.Add(1)

		go func(s *http.Server) {
			defer wg.Done()

			logs.WithTag("addr", s.Addr).Info("starting server")

			switch err := s.ListenAndServe(); err {
			case nil, http.ErrServerClosed, context.Canceled:
				logs.WithTag("addr", s.Addr).Info("stopping server")

			default:
				logs.Warn(errors.New("server stopped").
					WithTag("addr", s.Addr).
					Wrap(err))
			}
		}(s)
	}

	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
		return
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var shutdowns sync.WaitGroup
	for _, s := range servers {
		shutdowns.Add(1)

		go func(s *http.Server) {
			defer shutdowns.Done()

			if err := s.Shutdown(shutdownCtx); err != nil {
				logs.WithTag("addr", s.Addr).
					WithTag("timeout", shutdownTimeout).
					Warn(errors.New("shutting down the server failed").Wrap(err))
				s.Close()
			}
		}(s)
	}
	shutdowns.Wait()

	<-stopped
}

// MetricsPathFormatter drops the path of requests that were redirected,
// malformed or unrouted so that they do not create a metric label each.
func MetricsPathFormatter(statusCode int, path string) string {
	if statusCode == http.StatusMovedPermanently ||
		statusCode == http.StatusBadRequest ||
		statusCode == http.StatusNotFound ||
		statusCode == http.StatusMethodNotAllowed {
		return ""
	}

	return path
}
