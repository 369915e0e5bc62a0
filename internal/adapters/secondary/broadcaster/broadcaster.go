package broadcaster

import (
	"context"
	"fmt"

	"github.com/arthurdotwork/forumlive/internal/domain"
	"github.com/arthurdotwork/forumlive/internal/infrastructure/kafka"
	"github.com/arthurdotwork/forumlive/internal/infrastructure/nats"
	"github.com/arthurdotwork/forumlive/internal/infrastructure/redis"
)

// RedisBroadcaster publishes domain events on a redis channel so every
// gateway node subscribed to it routes them to its own connections.
type RedisBroadcaster struct {
	redisClient *redis.Client
	channel     string
}

func NewRedisBroadcaster(redisClient *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{redisClient: redisClient, channel: channel}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, e domain.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	if err := b.redisClient.Publish(ctx, b.channel, e); err != nil {
		return fmt.Errorf("redisClient.Publish: %w", err)
	}

	return nil
}

type NatsBroadcaster struct {
	natsClient *nats.Client
	subject    string
}

func NewNatsBroadcaster(natsClient *nats.Client, subject string) *NatsBroadcaster {
	return &NatsBroadcaster{natsClient: natsClient, subject: subject}
}

func (b *NatsBroadcaster) Publish(ctx context.Context, e domain.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	if err := b.natsClient.Publish(ctx, b.subject, e); err != nil {
		return fmt.Errorf("natsClient.Publish: %w", err)
	}

	return nil
}

// KafkaBroadcaster keys every event by its delivery scope so events for one
// room or receiver stay on one partition and keep their order.
type KafkaBroadcaster struct {
	kafkaClient *kafka.Client
	topic       string
}

func NewKafkaBroadcaster(kafkaClient *kafka.Client, topic string) *KafkaBroadcaster {
	return &KafkaBroadcaster{kafkaClient: kafkaClient, topic: topic}
}

func (b *KafkaBroadcaster) Publish(ctx context.Context, e domain.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	if err := b.kafkaClient.Publish(ctx, b.topic, e.ScopeKey(), e); err != nil {
		return fmt.Errorf("kafkaClient.Publish: %w", err)
	}

	return nil
}
