package validator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProbeReadinessSucceedsAfterRetries(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/models/my_model", r.URL.Path)
		requests++
		if requests < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	endpoint := strings.TrimPrefix(server.URL, "http://")
	err := ProbeReadiness(context.Background(), endpoint, "my_model",
		time.Now().Add(5*time.Second), 5*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 3, requests)
}

func TestProbeReadinessDeadlineExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	endpoint := strings.TrimPrefix(server.URL, "http://")
	err := ProbeReadiness(context.Background(), endpoint, "my_model",
		time.Now().Add(30*time.Millisecond), 5*time.Millisecond)
	require.ErrorIs(t, err, ErrDeadlineExceeded)
}

func TestProbeReadinessContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	endpoint := strings.TrimPrefix(server.URL, "http://")
	err := ProbeReadiness(ctx, endpoint, "my_model",
		time.Now().Add(5*time.Second), 5*time.Millisecond)
	require.ErrorIs(t, err, context.Canceled)
}
