package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

const metricsReadHeaderTimeout = 5 * time.Second

// newPrometheusReader returns an OTel reader bound to a private registry and
// the handler serving that registry. A private registry keeps repeated Init
// calls free of duplicate collector registration.
func newPrometheusReader() (sdkmetric.Reader, http.Handler, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return exporter, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}

// ServeMetrics starts serving handler on addr under /metrics in the
// background, one span per scrape. The returned server is owned by the caller.
func ServeMetrics(addr string, handler http.Handler, tracer trace.Tracer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", HTTPMiddleware(tracer, handler))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	go func() {
		_ = srv.ListenAndServe()
	}()

	return srv
}
