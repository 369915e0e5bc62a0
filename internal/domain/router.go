package domain

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// EventRouter delivers domain events to live connections. Events sharing a
// scope are delivered in arrival order; distinct scopes run independently.
type EventRouter struct {
	sessions SessionStore
	resolver *MembershipResolver

	lanes map[string][]Event
	wg    sync.WaitGroup
	mu    sync.Mutex
}

func NewEventRouter(sessions SessionStore, resolver *MembershipResolver) *EventRouter {
	return &EventRouter{
		sessions: sessions,
		resolver: resolver,
		lanes:    make(map[string][]Event),
	}
}

// Run consumes events until the channel is closed or ctx is done, then waits
// for the deliveries already accepted.
func (r *EventRouter) Run(ctx context.Context, events <-chan Event) error {
	defer r.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-events:
			if !ok {
				return nil
			}

			r.enqueue(ctx, e)
		}
	}
}

func (r *EventRouter) enqueue(ctx context.Context, e Event) {
	key := e.ScopeKey()

	r.mu.Lock()
	if queue, running := r.lanes[key]; running {
		r.lanes[key] = append(queue, e)
		r.mu.Unlock()
		return
	}
	r.lanes[key] = []Event{e}
	r.mu.Unlock()

	r.wg.Add(1)
	go r.drain(ctx, key)
}

func (r *EventRouter) drain(ctx context.Context, key string) {
	defer r.wg.Done()

	for {
		r.mu.Lock()
		queue := r.lanes[key]
		if len(queue) == 0 {
			delete(r.lanes, key)
			r.mu.Unlock()
			return
		}
		e := queue[0]
		r.lanes[key] = queue[1:]
		r.mu.Unlock()

		if err := r.Route(ctx, e); err != nil {
			slog.ErrorContext(ctx, "error routing event", "kind", e.Kind, "scope", key, "error", err)
		}
	}
}

// Route delivers a single event. Offline recipients are skipped and a failed
// push to one connection never aborts delivery to the others.
func (r *EventRouter) Route(ctx context.Context, e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	switch e.Kind.Delivery() {
	case DeliveryDirect:
		r.applyEffect(ctx, e, []uuid.UUID{*e.Receiver})
		r.deliverDirect(ctx, e)
		return nil
	case DeliveryRoom:
		return r.deliverRoom(ctx, e)
	default:
		return fmt.Errorf("%w: no delivery for %s", ErrInvalidEvent, e.Kind)
	}
}

func (r *EventRouter) deliverDirect(ctx context.Context, e Event) {
	conn, ok := r.sessions.Get(*e.Receiver)
	if !ok {
		slog.DebugContext(ctx, "receiver offline, dropping event", "kind", e.Kind, "receiver", *e.Receiver)
		return
	}

	if err := conn.Push(ctx, e.Envelope()); err != nil {
		slog.WarnContext(ctx, "error pushing event", "kind", e.Kind, "user_id", *e.Receiver, "error", err)
	}
}

func (r *EventRouter) deliverRoom(ctx context.Context, e Event) error {
	room := *e.Room

	if e.Kind.Effect() == EffectJoin {
		r.applyEffect(ctx, e, e.Members)
	}

	members, err := r.resolver.Members(ctx, room)
	if err != nil {
		return fmt.Errorf("resolver.Members: %w", err)
	}

	slog.DebugContext(ctx, "dispatching event to room", "kind", e.Kind, "room", room.Key(), "members", len(members))

	envelope := e.Envelope()
	for userID := range members {
		conn, ok := r.sessions.Get(userID)
		if !ok {
			continue
		}

		if err := conn.Push(ctx, envelope); err != nil {
			slog.WarnContext(ctx, "error pushing event", "kind", e.Kind, "room", room.Key(), "user_id", userID, "error", err)
		}
	}

	if e.Kind.Effect() == EffectLeave {
		r.applyEffect(ctx, e, e.Members)
	}

	return nil
}

func (r *EventRouter) applyEffect(ctx context.Context, e Event, userIDs []uuid.UUID) {
	if e.Room == nil {
		return
	}

	for _, userID := range userIDs {
		conn, ok := r.sessions.Get(userID)
		if !ok {
			continue
		}

		switch e.Kind.Effect() {
		case EffectJoin:
			if conn.Join(*e.Room) {
				slog.DebugContext(ctx, "connection joined room", "user_id", userID, "room", e.Room.Key())
			}
		case EffectLeave:
			if conn.Leave(*e.Room) {
				slog.DebugContext(ctx, "connection left room", "user_id", userID, "room", e.Room.Key())
			}
		}
	}
}
