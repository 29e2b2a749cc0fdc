package nvdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/nvdb-export/internal/resilience"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Options{
		BaseURL:        srv.URL,
		CatalogURL:     srv.URL,
		ClientName:     "test-client",
		Timeout:        5 * time.Second,
		MaxRetries:     3,
		PageSize:       2,
		RequestsPerSec: 1000,
		SRID:           5973,
		BackoffBase:    time.Millisecond,
	})
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Options{})
	opts := c.Options()
	assert.Equal(t, DefaultBaseURL, opts.BaseURL)
	assert.Equal(t, DefaultCatalogURL, opts.CatalogURL)
	assert.Equal(t, "nvdb-export", opts.ClientName)
	assert.Equal(t, 60*time.Second, opts.Timeout)
	assert.Equal(t, 3, opts.MaxRetries)
	assert.Equal(t, 1000, opts.PageSize)
	assert.InDelta(t, 5.0, opts.RequestsPerSec, 0.001)
}

func TestGetJSON_SendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-client", r.Header.Get("X-Client"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	body, err := newTestClient(srv).getJSON(context.Background(), srv.URL+"/x")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestGetJSON_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch attempts.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	body, err := newTestClient(srv).getJSON(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestGetJSON_RetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).getJSON(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries exhausted")
	assert.Equal(t, int32(3), attempts.Load())
}

func TestGetJSON_SingleAttempt(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	c.opts.MaxRetries = 1

	_, err := c.getJSON(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestGetJSON_ClientErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"ugyldig fylke"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).getJSON(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "ugyldig fylke")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestGetJSON_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"objekter": [`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).getJSON(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestGetJSON_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(srv).getJSON(ctx, srv.URL)
	require.Error(t, err)
}

func TestGetJSON_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Options{
		BaseURL:          srv.URL,
		CatalogURL:       srv.URL,
		MaxRetries:       1,
		RequestsPerSec:   1000,
		BackoffBase:      time.Millisecond,
		BreakerThreshold: 2,
		BreakerReset:     time.Hour,
	})

	for range 2 {
		_, err := c.getJSON(context.Background(), srv.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "retries exhausted")
	}

	_, err := c.getJSON(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, resilience.ErrCircuitOpen))
	assert.Equal(t, int32(2), attempts.Load(), "open breaker makes no request")
}

func TestGetJSON_BreakerDisabled(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Options{
		BaseURL:          srv.URL,
		MaxRetries:       1,
		RequestsPerSec:   1000,
		BackoffBase:      time.Millisecond,
		BreakerThreshold: -1,
	})
	for range 4 {
		_, _ = c.getJSON(context.Background(), srv.URL)
	}
	assert.Equal(t, int32(4), attempts.Load())
}
