package collyfetcher

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
	"go.uber.org/zap"

	"github.com/jakepage91/page-watcher/internal/watcher"
)

func fastRetry(attempts int) *watcher.RetryPolicy {
	return watcher.NewRetryPolicy(attempts, time.Millisecond, 5*time.Millisecond)
}

func TestFetchSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	f := New(Config{UserAgent: "test-agent", Timeout: 5 * time.Second, Retry: fastRetry(3)}, zap.NewNop())
	resp, err := f.Fetch(context.Background(), watcher.FetchRequest{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "ok")
}

func TestFetchPerRequestUserAgentOverridesConfig(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "override-agent", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(Config{UserAgent: "config-agent", Timeout: 5 * time.Second, Retry: fastRetry(1)}, zap.NewNop())
	_, err := f.Fetch(context.Background(), watcher.FetchRequest{URL: srv.URL, UserAgent: "override-agent"})
	require.NoError(t, err)
}

func TestFetchSameURLRepeatedly(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	// Each invocation must issue a real request; the collector may not
	// treat the watched URL as already visited.
	f := New(Config{Timeout: 5 * time.Second, Retry: fastRetry(3)}, zap.NewNop())
	for i := 0; i < 3; i++ {
		_, err := f.Fetch(context.Background(), watcher.FetchRequest{URL: srv.URL})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchRetriesTransientServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second, Retry: fastRetry(3)}, zap.NewNop())
	resp, err := f.Fetch(context.Background(), watcher.FetchRequest{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Contains(t, string(resp.Body), "recovered")
}

func TestFetchExhaustionYieldsHTTPStatusError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second, Retry: fastRetry(2)}, zap.NewNop())
	_, err := f.Fetch(context.Background(), watcher.FetchRequest{URL: srv.URL})
	require.Error(t, err)

	var fetchErr *watcher.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, watcher.FetchHTTPStatus, fetchErr.Kind)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.Equal(t, 2, fetchErr.Attempts)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchNetworkFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	f := New(Config{Timeout: time.Second, Retry: fastRetry(2)}, zap.NewNop())
	_, err := f.Fetch(context.Background(), watcher.FetchRequest{URL: url})
	require.Error(t, err)

	var fetchErr *watcher.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, watcher.FetchNetworkFailure, fetchErr.Kind)
}

func TestFetchTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	f := New(Config{Timeout: 50 * time.Millisecond, Retry: fastRetry(1)}, zap.NewNop())
	_, err := f.Fetch(context.Background(), watcher.FetchRequest{URL: srv.URL})
	require.Error(t, err)

	var fetchErr *watcher.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, watcher.FetchTimeout, fetchErr.Kind)
}
