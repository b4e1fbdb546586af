package gateway

import (
	"context"
	"fmt"

	"texttalk/domain/event"
)

var errBufferFull = fmt.Errorf("connection outbound buffer full")

// Sink is the delivery end of one websocket connection: a bounded channel
// drained by the connection's write pump.
type Sink struct {
	Events chan event.DomainEvent
}

func NewSink(bufferSize int) *Sink {
	return &Sink{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by the fan-out path. It hands the event to the owning
// connection's write pump and returns immediately: when the buffer is full
// the event is dropped rather than blocking delivery to other members. The
// caller counts the drop.
func (s *Sink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errBufferFull
	}
}
