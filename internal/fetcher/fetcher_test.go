package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pricetrack/internal/rotation"
)

func testManager() *rotation.Manager {
	return rotation.NewManager([]string{"test-agent/1.0"}, nil, 1)
}

func TestHTTPFetcherRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(testManager(), 3, time.Second, time.Millisecond, zap.NewNop())
	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", body)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPFetcherExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(testManager(), 3, time.Second, time.Millisecond, zap.NewNop())
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPFetcherSendsConfiguredUserAgent(t *testing.T) {
	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(testManager(), 1, time.Second, time.Millisecond, zap.NewNop())
	_, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "test-agent/1.0", gotAgent)
}

func TestHTTPFetcherHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewHTTPFetcher(testManager(), 3, time.Second, time.Hour, zap.NewNop())
	_, err := f.Fetch(ctx, srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
