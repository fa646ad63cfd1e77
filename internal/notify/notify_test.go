package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relwatch/relwatch/internal/core"
)

func event() core.NewReleaseEvent {
	return core.NewReleaseEvent{
		ProjectID:    42,
		Project:      "foo",
		Ecosystem:    "pypi",
		Version:      "1.3.0",
		Raw:          "foo-1.3.0",
		DiscoveredAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestWebhookPublish(t *testing.T) {
	var got core.NewReleaseEvent
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	w := NewWebhook(server.URL)
	require.NoError(t, w.Publish(context.Background(), event()))

	assert.Equal(t, int64(42), got.ProjectID)
	assert.Equal(t, "1.3.0", got.Version)
	assert.Equal(t, "foo-1.3.0", got.Raw)
}

func TestWebhookPublish_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	w := NewWebhook(server.URL)
	err := w.Publish(context.Background(), event())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestFanout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	f := Fanout{NewLogPublisher(zerolog.Nop()), NewWebhook(server.URL)}
	assert.NoError(t, f.Publish(context.Background(), event()))
}
