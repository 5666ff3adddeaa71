package sheetlog

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elpasoverse/portal/internal/queue"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestHandlePostsPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ev := queue.NewEvent(queue.SheetUsers, map[string]any{"userId": "u1", "initialBalance": 0})
	ev.OccurredAt = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	c := New(srv.URL, "s3cret", time.Second, discard())
	require.NoError(t, c.Handle(context.Background(), ev))

	assert.Equal(t, "s3cret", got["secret"])
	assert.Equal(t, "Users", got["sheet"])
	assert.Equal(t, "2025-01-02T03:04:05Z", got["timestamp"])
	assert.Equal(t, "u1", got["data"].(map[string]any)["userId"])
}

func TestHandleReportsFailuresWithoutRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second, discard())
	assert.Error(t, c.Handle(context.Background(), queue.NewEvent(queue.SheetTransactions, nil)))
	assert.Equal(t, 1, calls)
}

func TestHandleTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "", 30*time.Millisecond, discard())
	start := time.Now()
	assert.Error(t, c.Handle(context.Background(), queue.NewEvent(queue.SheetWallets, nil)))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestHandleUnconfiguredIsNoop(t *testing.T) {
	c := New("", "", time.Second, discard())
	assert.NoError(t, c.Handle(context.Background(), queue.NewEvent(queue.SheetFilmIdeas, nil)))
}
