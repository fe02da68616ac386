package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"plurald/internal/media"
	"plurald/internal/proxy"
)

// Serve runs the API server on addr until ctx is cancelled, then shuts
// down gracefully.
func Serve(ctx context.Context, addr string, svc *proxy.Service, med media.Store, logger proxy.Logger) error {
	router := NewRouter(svc, med)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down api server: %w", err)
	}
	return nil
}
