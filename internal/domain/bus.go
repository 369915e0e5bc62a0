package domain

import (
	"context"
	"fmt"
	"sync"
)

// EventBus hands events from the write path to the router. Publishing never
// waits for delivery, only for room in the buffer.
type EventBus struct {
	events chan Event
	done   chan struct{}
	once   sync.Once
}

func NewEventBus(size int) *EventBus {
	if size <= 0 {
		size = 1
	}

	return &EventBus{
		events: make(chan Event, size),
		done:   make(chan struct{}),
	}
}

func (b *EventBus) Publish(ctx context.Context, e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	select {
	case <-b.done:
		return ErrBusClosed
	default:
	}

	select {
	case b.events <- e:
		return nil
	case <-b.done:
		return ErrBusClosed
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", e.Kind, ctx.Err())
	}
}

func (b *EventBus) Events() <-chan Event {
	return b.events
}

// Close stops accepting events. The events channel itself stays open so a
// publisher racing with Close can never panic; consumers stop on ctx.
func (b *EventBus) Close() {
	b.once.Do(func() { close(b.done) })
}

func (b *EventBus) Done() <-chan struct{} {
	return b.done
}
