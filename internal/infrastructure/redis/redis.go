package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Message = redis.Message

var ErrSubscriptionClosed = errors.New("redis subscription closed")

type Client struct {
	rdb *redis.Client
}

// NewClient connects to addr and fails fast when the server does not answer.
func NewClient(ctx context.Context, addr string) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   3,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("rdb.Ping: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Subscribe blocks and hands every message on channel to handler until ctx
// is done. go-redis reconnects the subscription on its own; a handler error
// stops it.
func (c *Client) Subscribe(ctx context.Context, channel string, handler func(*Message) error) error {
	pubsub := c.rdb.Subscribe(ctx, channel)
	defer func() {
		_ = pubsub.Close()
	}()

	// Subscription confirmation.
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return fmt.Errorf("pubsub.Receive: %w", err)
	}

	return consume(ctx, pubsub.Channel(), handler)
}

func consume(ctx context.Context, messages <-chan *Message, handler func(*Message) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return ErrSubscriptionClosed
			}

			if err := handler(msg); err != nil {
				return fmt.Errorf("handler: %w", err)
			}
		}
	}
}

func (c *Client) Publish(ctx context.Context, channel string, message any) error {
	msgBytes, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	if err := c.rdb.Publish(ctx, channel, msgBytes).Err(); err != nil {
		return fmt.Errorf("rdb.Publish: %w", err)
	}

	return nil
}

func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("rdb.Close: %w", err)
	}

	return nil
}
