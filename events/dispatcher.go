package events

import (
	"context"
	"log/slog"
	"sync"
)

// Sink is one downstream consumer of engine events (feed store writer,
// websocket hub, audit log).
type Sink interface {
	Deliver(ctx context.Context, event Event) error
}

// Dispatcher decouples scheduling correctness from feed fan-out latency:
// Notify enqueues and returns immediately, a single worker drains the
// queue and hands each event to every sink. When the queue is full the
// event is dropped and logged rather than blocking a completion request.
type Dispatcher struct {
	logger *slog.Logger
	sinks  []Sink
	queue  chan Event

	closeOnce sync.Once
	done      chan struct{}
}

func NewDispatcher(logger *slog.Logger, buffer int, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Dispatcher{
		logger: logger,
		sinks:  sinks,
		queue:  make(chan Event, buffer),
		done:   make(chan struct{}),
	}
}

// Run drains the queue until Close is called. Start it in its own goroutine.
func (d *Dispatcher) Run() {
	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		case <-d.done:
			// Drain what is already queued before stopping.
			for {
				select {
				case event := <-d.queue:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(event Event) {
	ctx := context.Background()
	for _, sink := range d.sinks {
		if err := sink.Deliver(ctx, event); err != nil {
			d.logger.Warn("event delivery failed",
				slog.String("kind", string(event.Kind)),
				slog.String("event_id", event.ID.String()),
				slog.Any("error", err))
		}
	}
}

// Notify implements Notifier. It never blocks the caller.
func (d *Dispatcher) Notify(_ context.Context, event Event) {
	select {
	case d.queue <- event:
	default:
		d.logger.Warn("event queue full, dropping event",
			slog.String("kind", string(event.Kind)),
			slog.String("event_id", event.ID.String()))
	}
}

func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.done) })
}
