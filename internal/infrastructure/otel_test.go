package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOTelInitialization(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.EnableTracing = true
	cfg.TraceWriter = io.Discard

	providers, err := InitializeOTel(cfg, quietLogger())
	require.NoError(t, err)

	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Metrics)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, span := providers.Tracer.Start(context.Background(), "render")
	assert.Equal(t, span.SpanContext().TraceID().String(), TraceIDFromContext(ctx))
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelDisabled(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{ServiceName: "test"}, quietLogger())
	require.NoError(t, err)

	assert.Nil(t, providers.MeterProvider)
	assert.Nil(t, providers.PrometheusHTTP)
	require.NotNil(t, providers.Metrics)

	// no-op instruments must be safe to use
	providers.Metrics.RecordRender(context.Background(), 3, time.Millisecond, nil)
	providers.Metrics.RecordCacheLookup(context.Background(), true)
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestDashboardMetricsExposedToPrometheus(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx := context.Background()
	m := providers.Metrics
	m.RecordRender(ctx, 12, 5*time.Millisecond, nil)
	m.RecordRender(ctx, 0, 0, errors.New("boom"))
	m.RecordTableLoad(ctx, 20*time.Millisecond, nil)
	m.RecordCacheLookup(ctx, true)
	m.RecordCacheLookup(ctx, false)
	m.RecordHTTPRequest(ctx, http.MethodGet, "/api/dashboard", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, name := range []string{
		"dashboard_renders_total",
		"table_loads_total",
		"table_cache_hits_total",
		"table_cache_misses_total",
		"http_requests_total",
	} {
		assert.Contains(t, body, name)
	}
	assert.Contains(t, body, `outcome="error"`)
}

func TestNoopDashboardMetrics(t *testing.T) {
	m := NoopDashboardMetrics()
	require.NotNil(t, m)
	m.RecordTableLoad(context.Background(), time.Second, errors.New("x"))
}
