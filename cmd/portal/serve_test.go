package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elpasoverse/portal/internal/queue"
)

type sheetRecorder struct {
	mu  sync.Mutex
	got []string
}

func (r *sheetRecorder) Handle(_ context.Context, ev queue.Event) error {
	r.mu.Lock()
	r.got = append(r.got, ev.Sheet)
	r.mu.Unlock()
	return nil
}

func (r *sheetRecorder) sheets() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

// slowServer finishes an in-flight request during Shutdown; that request
// emits one more event.
type slowServer struct {
	emit    func()
	stopped chan struct{}
	once    sync.Once
}

func (s *slowServer) Start(string) error {
	<-s.stopped
	return http.ErrServerClosed
}

func (s *slowServer) Shutdown(context.Context) error {
	time.Sleep(20 * time.Millisecond)
	s.emit()
	s.once.Do(func() { close(s.stopped) })
	return nil
}

func TestServeUntilDrainsEventsFromInFlightRequests(t *testing.T) {
	rec := &sheetRecorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := queue.NewDispatcher(queue.DirectPublisher{Handler: rec}, 8, time.Second, logger)
	srv := &slowServer{
		emit:    func() { d.Emit(queue.NewEvent(queue.SheetTransactions, nil)) },
		stopped: make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveUntil(ctx, srv, ":0", d) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serveUntil did not return")
	}
	<-d.Done()
	assert.Equal(t, []string{queue.SheetTransactions}, rec.sheets())
}

type failingServer struct{}

func (failingServer) Start(string) error             { return errors.New("address in use") }
func (failingServer) Shutdown(context.Context) error { return nil }

func TestServeUntilReportsStartFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := queue.NewDispatcher(queue.DirectPublisher{Handler: &sheetRecorder{}}, 8, time.Second, logger)
	err := serveUntil(context.Background(), failingServer{}, ":0", d)
	assert.EqualError(t, err, "address in use")
}
