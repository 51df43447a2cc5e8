package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsScanner/internal/domain"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("X-Agent", r.UserAgent())
		_, _ = w.Write([]byte("<html><h1>ok</h1></html>"))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		_, _ = w.Write([]byte("late"))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestFetcher_OK(t *testing.T) {
	t.Parallel()

	server := newServer(t)
	f := New(Config{UserAgent: "test-agent"}, nil)

	resp, err := f.Fetch(context.Background(), server.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, server.URL+"/ok", resp.URL)
	assert.Contains(t, string(resp.Body), "<h1>ok</h1>")
	assert.Equal(t, "test-agent", resp.Header.Get("X-Agent"))
}

func TestFetcher_RevisitAllowed(t *testing.T) {
	t.Parallel()

	server := newServer(t)
	f := New(Config{}, nil)

	for range 2 {
		_, err := f.Fetch(context.Background(), server.URL+"/ok")
		require.NoError(t, err)
	}
}

func TestFetcher_HTTPError(t *testing.T) {
	t.Parallel()

	server := newServer(t)
	f := New(Config{}, nil)

	_, err := f.Fetch(context.Background(), server.URL+"/missing")
	require.ErrorIs(t, err, domain.ErrFetch)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
}

func TestFetcher_Timeout(t *testing.T) {
	t.Parallel()

	server := newServer(t)
	f := New(Config{Timeout: 100 * time.Millisecond}, nil)

	_, err := f.Fetch(context.Background(), server.URL+"/slow")
	assert.ErrorIs(t, err, domain.ErrFetch)
}

func TestFetcher_CancelledContext(t *testing.T) {
	t.Parallel()

	server := newServer(t)
	f := New(Config{RequestsPerSecond: 0.001}, nil)

	_, err := f.Fetch(context.Background(), server.URL+"/ok")
	require.NoError(t, err, "the first request uses the burst")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx, server.URL+"/ok")
	assert.ErrorIs(t, err, domain.ErrFetch, "rate limiter wait must honour the context")
}
