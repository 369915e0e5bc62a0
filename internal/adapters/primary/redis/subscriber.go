package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arthurdotwork/forumlive/internal/domain"
	"github.com/arthurdotwork/forumlive/internal/infrastructure/redis"
)

type EventSink interface {
	Publish(ctx context.Context, e domain.Event) error
}

type Subscriber struct {
	redisClient *redis.Client
	sink        EventSink
}

func NewSubscriber(redisClient *redis.Client, sink EventSink) *Subscriber {
	return &Subscriber{
		redisClient: redisClient,
		sink:        sink,
	}
}

func (s *Subscriber) Subscribe(ctx context.Context, channel string) error {
	slog.DebugContext(ctx, "subscribing to redis channel", "channel", channel)

	if err := s.redisClient.Subscribe(ctx, channel, func(msg *redis.Message) error {
		return s.handle(ctx, []byte(msg.Payload))
	}); err != nil {
		slog.ErrorContext(ctx, "error subscribing to redis", "error", err)
		return fmt.Errorf("redisClient.Subscribe: %w", err)
	}

	return nil
}

// handle forwards one message to the sink. Malformed events are dropped so a
// single bad producer cannot stop the subscription.
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
