package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Anuu03/Sweet-Bites/pkg/logger"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	return exporter
}

func tracedRouter(pattern string, handler http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(Tracing("checkout-service"))
	r.Get(pattern, handler)
	return r
}

func TestTracing_CreatesSpanWithRouteName(t *testing.T) {
	exporter := setupTestTracer(t)

	router := tracedRouter("/api/v1/checkout/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/abc-123", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/v1/checkout/{id}", spans[0].Name)
}

func TestTracing_RecordsStatusCode(t *testing.T) {
	exporter := setupTestTracer(t)

	router := tracedRouter("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	found := false
	for _, attr := range spans[0].Attributes {
		if string(attr.Key) == "http.status_code" {
			assert.EqualValues(t, http.StatusNotFound, attr.Value.AsInt64())
			found = true
		}
	}
	assert.True(t, found, "span should carry http.status_code")
}

func TestTracing_ServerErrorMarksSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	router := tracedRouter("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.EqualValues(t, 1, spans[0].Status.Code, "5xx should set span status to Error")
}

func TestTracing_EnrichesRequestLogs(t *testing.T) {
	setupTestTracer(t)

	var buf bytes.Buffer
	base := logger.NewWithWriter("checkout-service", "info", &buf)

	r := chi.NewRouter()
	r.Use(Tracing("checkout-service"))
	r.Use(RequestLogger(base))
	r.Get("/logged", func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("handler log")
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/logged", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.NotEmpty(t, out["trace_id"], "request logs should carry the active trace id")
	assert.NotEmpty(t, out["span_id"])
}

func TestTracing_PropagatesInboundTraceContext(t *testing.T) {
	exporter := setupTestTracer(t)

	router := tracedRouter("/traced", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/traced", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext.TraceID().String())

	assert.NotEmpty(t, rec.Header().Get("traceparent"), "response should carry trace context")
}
