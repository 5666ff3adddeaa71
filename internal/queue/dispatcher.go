package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/elpasoverse/portal/internal/metrics"
)

// Dispatcher decouples producers from the Publisher.  Emit never blocks: when
// the buffer is full the event is dropped and counted.  Publish failures are
// logged and never reach the producer.
type Dispatcher struct {
	pub     Publisher
	events  chan Event
	timeout time.Duration
	logger  *slog.Logger
	done    chan struct{}
}

func NewDispatcher(pub Publisher, buffer int, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Dispatcher{
		pub:     pub,
		events:  make(chan Event, buffer),
		timeout: timeout,
		logger:  logger.With("component", "dispatcher"),
		done:    make(chan struct{}),
	}
}

// Emit queues ev for publishing.
func (d *Dispatcher) Emit(ev Event) {
	select {
	case d.events <- ev:
		metrics.EventQueueDepth.Set(float64(len(d.events)))
	default:
		metrics.EventsDropped.Inc()
		d.logger.Warn("event buffer full, dropping", "sheet", ev.Sheet, "id", ev.ID)
	}
}

// Run publishes queued events until ctx is cancelled, then drains what is
// already buffered.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer close(d.done)
	for {
		select {
		case ev := <-d.events:
			d.publish(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-d.events:
					d.publish(ev)
				default:
					return nil
				}
			}
		}
	}
}

// Done is closed when Run has returned.
func (d *Dispatcher) Done() <-chan struct{} { return d.done }

func (d *Dispatcher) publish(ev Event) {
	metrics.EventQueueDepth.Set(float64(len(d.events)))
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.pub.Publish(ctx, ev); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		d.logger.Error("publish event", "sheet", ev.Sheet, "id", ev.ID, "err", err)
		return
	}
	metrics.EventsPublished.WithLabelValues("ok").Inc()
}
