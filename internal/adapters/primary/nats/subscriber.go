package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arthurdotwork/forumlive/internal/domain"
	"github.com/arthurdotwork/forumlive/internal/infrastructure/nats"
)

type EventSink interface {
	Publish(ctx context.Context, e domain.Event) error
}

type Subscriber struct {
	natsClient *nats.Client
	sink       EventSink
}

func NewSubscriber(natsClient *nats.Client, sink EventSink) *Subscriber {
	return &Subscriber{
		natsClient: natsClient,
		sink:       sink,
	}
}

func (s *Subscriber) Subscribe(ctx context.Context, subject string) error {
	slog.DebugContext(ctx, "subscribing to nats subject", "subject", subject)

	if err := s.natsClient.Subscribe(ctx, subject, func(msg *nats.Message) error {
		return s.handle(ctx, msg.Data)
	}); err != nil {
		slog.ErrorContext(ctx, "error subscribing to nats", "error", err)
		return fmt.Errorf("natsClient.Subscribe: %w", err)
	}

	return nil
}

func (s *Subscriber) handle(ctx context.Context, payload []byte) error {
	e, err := domain.DecodeEvent(payload)
	if err != nil {
		slog.WarnContext(ctx, "dropping malformed event", "error", err)
		return nil
	}

	if err := s.sink.Publish(ctx, e); err != nil {
		if errors.Is(err, domain.ErrBusClosed) || ctx.Err() != nil {
			return fmt.Errorf("sink.Publish: %w", err)
		}

		slog.WarnContext(ctx, "dropping event", "kind", e.Kind, "error", err)
	}

	return nil
}
