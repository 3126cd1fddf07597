package observability_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/smellscan/pkg/observability"
)

func TestInit_NoopByDefault(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.LogOutput = io.Discard

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)
	assert.Nil(t, providers.MetricsHandler)
	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_PrometheusHandlerServesInstruments(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.LogOutput = io.Discard
	cfg.Prometheus = true

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { _ = providers.Shutdown(context.Background()) })

	require.NotNil(t, providers.MetricsHandler)

	metrics, err := observability.NewScanMetrics(providers.Meter)
	require.NoError(t, err)

	metrics.RecordFile(context.Background(), observability.FileStats{Bytes: 64})

	rec := httptest.NewRecorder()
	providers.MetricsHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "smellscan_scan_files_total")
}

func TestHTTPMiddleware_PassesThrough(t *testing.T) {
	t.Parallel()

	handler := observability.HTTPMiddleware(noop.NewTracerProvider().Tracer("test"),
		http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
			rw.WriteHeader(http.StatusTeapot)
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want map[string]string
		name string
		raw  string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "single", raw: "api-key=secret", want: map[string]string{"api-key": "secret"}},
		{name: "spaces", raw: " a = 1 , b=2 ", want: map[string]string{"a": "1", "b": "2"}},
		{name: "malformed only", raw: "novalue,=x", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, observability.ParseOTLPHeaders(tt.raw))
		})
	}
}
