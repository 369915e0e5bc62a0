package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arthurdotwork/forumlive/internal/domain"
	"github.com/arthurdotwork/forumlive/internal/infrastructure/kafka"
)

type EventSink interface {
	Publish(ctx context.Context, e domain.Event) error
}

type Subscriber struct {
	kafkaClient *kafka.Client
	sink        EventSink
}

func NewSubscriber(kafkaClient *kafka.Client, sink EventSink) *Subscriber {
	return &Subscriber{
		kafkaClient: kafkaClient,
		sink:        sink,
	}
}

func (s *Subscriber) Subscribe(ctx context.Context, topic string) error {
	slog.DebugContext(ctx, "subscribing to kafka topic", "topic", topic)

	if err := s.kafkaClient.Subscribe(ctx, topic, func(msg *kafka.Message) error {
		return s.handle(ctx, msg.Value)
	}); err != nil {
		slog.ErrorContext(ctx, "error subscribing to kafka", "error", err)
		return fmt.Errorf("kafkaClient.Subscribe: %w", err)
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
