package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shopify/sarama"
)

type Message = sarama.ConsumerMessage

// Client couples a consumer group with a synchronous producer on the same
// brokers. Messages are keyed so that one key always lands on one partition.
type Client struct {
	group    sarama.ConsumerGroup
	producer sarama.SyncProducer
}

func NewConfig(clientID string, version string) (*sarama.Config, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID

	if version != "" {
		v, err := sarama.ParseKafkaVersion(version)
		if err != nil {
			return nil, fmt.Errorf("sarama.ParseKafkaVersion: %w", err)
		}

		cfg.Version = v
	}

	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	cfg.Consumer.Return.Errors = true

	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Partitioner = sarama.NewHashPartitioner

	cfg.Net.DialTimeout = 10 * time.Second

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cfg.Validate: %w", err)
	}

	return cfg, nil
}

func NewClient(brokers []string, groupID string, cfg *sarama.Config) (*Client, error) {
	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, fmt.Errorf("sarama.NewConsumerGroup: %w", err)
	}

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		_ = group.Close()
		return nil, fmt.Errorf("sarama.NewSyncProducer: %w", err)
	}

	go func() {
		for err := range group.Errors() {
			slog.Warn("kafka consumer group error", "group", groupID, "error", err)
		}
	}()

	return &Client{group: group, producer: producer}, nil
}

// Subscribe blocks and hands every message on topic to handler until ctx is
// done. The group is rejoined after every rebalance. A handler error ends the
// current session only; it is reported on the group error channel.
func (c *Client) Subscribe(ctx context.Context, topic string, handler func(*Message) error) error {
	h := &groupHandler{handler: handler}

	for {
		if err := c.group.Consume(ctx, []string{topic}, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}

			return fmt.Errorf("group.Consume: %w", err)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Client) Publish(ctx context.Context, topic string, key string, message any) error {
	msgBytes, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	if _, _, err := c.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(msgBytes),
	}); err != nil {
		return fmt.Errorf("producer.SendMessage: %w", err)
	}

	return nil
}

func (c *Client) Close() error {
	return errors.Join(c.producer.Close(), c.group.Close())
}

type groupHandler struct {
	handler func(*Message) error
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-session.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			if err := h.handler(msg); err != nil {
				return fmt.Errorf("handler: %w", err)
			}

			session.MarkMessage(msg, "")
		}
	}
}
