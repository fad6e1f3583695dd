package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/doismellburning/samoyed/internal/config"
)

const readTimeout = 3 * time.Second

// CreateMetricsServer serves the /metrics scrape endpoint, blocking
// until it fails or is shut down. A disabled config is a no-op.
func CreateMetricsServer(cfg config.MetricsConfig) error {
	if !cfg.Enabled {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: readTimeout,
	}
	return server.ListenAndServe()
}
