package gateway

import (
	"context"
	"log/slog"

	"relay-lab/domain/event"
)

// ConnSink is the write side of one websocket connection. Events are
// buffered in a bounded channel so a slow receiver never blocks the
// handler that produced the event. On overflow the oldest buffered
// event is discarded: real-time signaling favors recency over
// completeness.
type ConnSink struct {
	log    *slog.Logger
	Events chan event.Event
}

func NewConnSink(log *slog.Logger, bufferSize int) *ConnSink {
	return &ConnSink{log: log, Events: make(chan event.Event, bufferSize)}
}

// Consume is called by the registry fan-out. It hands the event to the
// connection's write pump and never blocks.
func (s *ConnSink) Consume(ctx context.Context, e event.Event) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Buffer full: make room by dropping the oldest event.
	select {
	case dropped := <-s.Events:
		s.log.Debug("Connection backpressure, dropping oldest event", "event", dropped.Name())
	default:
	}
	select {
	case s.Events <- e:
	default:
		s.log.Debug("Connection backpressure, dropping event", "event", e.Name())
	}
	return nil
}
