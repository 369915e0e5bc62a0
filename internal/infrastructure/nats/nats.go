package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

type Client struct {
	conn *nats.Conn
}

type Message = nats.Msg

func NewClient(url string, name string) (*Client, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500*time.Millisecond),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(3*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats.Connect: %w", err)
	}

	return &Client{conn: conn}, nil
}

// Subscribe blocks and hands every message on subject to handler until ctx
// is done. A handler error stops the subscription.
func (c *Client) Subscribe(ctx context.Context, subject string, handler func(*Message) error) error {
	messages := make(chan *nats.Msg, 1024)

	sub, err := c.conn.ChanSubscribe(subject, messages)
	if err != nil {
		return fmt.Errorf("conn.ChanSubscribe: %w", err)
	}
	defer func() {
		_ = sub.Unsubscribe()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-messages:
			if err := handler(msg); err != nil {
				return fmt.Errorf("handler: %w", err)
			}
		}
	}
}

func (c *Client) Publish(ctx context.Context, subject string, message any) error {
	msgBytes, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	if err := c.conn.Publish(subject, msgBytes); err != nil {
		return fmt.Errorf("conn.Publish: %w", err)
	}

	return nil
}

func (c *Client) Close() error {
	if err := c.conn.Drain(); err != nil {
		return fmt.Errorf("conn.Drain: %w", err)
	}

	return nil
}
