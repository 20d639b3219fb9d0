package httpclient

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newBreakerClient(name string, minRequests uint32) *CircuitBreakerClient {
	return NewCircuitBreakerClient(New(testConfig(0)), CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  minRequests,
	}, discardLogger())
}

func TestCircuitBreakerClient_PassesThroughSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newBreakerClient("cb-success", 2)
	resp, err := client.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gobreaker.StateClosed, client.State())
}

func TestCircuitBreakerClient_ServerErrorIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newBreakerClient("cb-5xx", 10)
	_, err := client.Get(context.Background(), srv.URL)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server error 500")
}

func TestCircuitBreakerClient_ClientErrorIsNotFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newBreakerClient("cb-4xx", 2)
	for i := 0; i < 5; i++ {
		resp, err := client.Get(context.Background(), srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.Equal(t, gobreaker.StateClosed, client.State())
}

func TestCircuitBreakerClient_OpensAfterRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newBreakerClient("cb-opens", 2)
	for i := 0; i < 3; i++ {
		_, _ = client.Get(context.Background(), srv.URL)
	}

	assert.Equal(t, gobreaker.StateOpen, client.State())

	_, err := client.Get(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestDefaultCircuitBreakerConfig(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("payment-gateways")
	assert.Equal(t, "payment-gateways", cfg.Name)
	assert.Equal(t, uint32(1), cfg.MaxRequests)
	assert.Equal(t, 0.5, cfg.FailureRatio)
	assert.Equal(t, uint32(5), cfg.MinRequests)
}
