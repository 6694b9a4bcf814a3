package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samvad-hq/sesame-client/internal/logger"
)

// ServeMetrics exposes the Prometheus registry on addr until ctx is cancelled. An empty
// addr is a no-op.
func ServeMetrics(ctx context.Context, addr string, log logger.Logger) {
	if addr == "" {
		return
	}
	if log == nil {
		log = logger.NopLogger{}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		log.InfoObj("metrics endpoint listening", "metrics_addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ErrorObj("metrics endpoint failed", "error", err.Error())
		}
	}()
}
