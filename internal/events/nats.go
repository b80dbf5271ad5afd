// Package events publishes reorder alerts produced by inventory optimization.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/szlkpr/ims-ml-service/internal/config"
	"github.com/szlkpr/ims-ml-service/internal/domain"
)

const reorderToken = "reorder"

// Publisher emits reorder events.
type Publisher interface {
	PublishReorder(ctx context.Context, ev domain.ReorderEvent) error
	Close()
}

// ReorderHandler is called for every consumed event. Returning an error naks the message.
type ReorderHandler func(ev domain.ReorderEvent) error

// Client wraps a JetStream connection bound to one stream.
type Client struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	stream string
}

var _ Publisher = (*Client)(nil)

// NewPublisher returns a noop publisher unless events are enabled.
func NewPublisher(ctx context.Context, cfg config.EventsConfig) (Publisher, error) {
	if !cfg.Enabled {
		return noopPublisher{}, nil
	}
	return NewClient(ctx, cfg)
}

// NewClient connects and makes sure the stream exists.
func NewClient(ctx context.Context, cfg config.EventsConfig) (*Client, error) {
	nc, err := nats.Connect(cfg.NatsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.RetryAttempts),
		nats.ReconnectWait(cfg.RetryDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	c := &Client{nc: nc, js: js, stream: cfg.StreamName}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.StreamName,
		Subjects:  []string{cfg.StreamName + ".>"},
		Retention: jetstream.LimitsPolicy,
		Storage:   jetstream.FileStorage,
		MaxAge:    7 * 24 * time.Hour,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	return c, nil
}

// ReorderSubject is <stream>.reorder.<product>, with the product made subject-safe.
func ReorderSubject(stream, product string) string {
	return strings.Join([]string{stream, reorderToken, subjectToken(product)}, ".")
}

func subjectToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}

func (c *Client) PublishReorder(ctx context.Context, ev domain.ReorderEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode reorder event: %w", err)
	}
	if _, err := c.js.Publish(ctx, ReorderSubject(c.stream, ev.Product), payload); err != nil {
		return fmt.Errorf("failed to publish reorder event: %w", err)
	}
	return nil
}

// SubscribeReorders attaches a durable consumer to every reorder subject.
func (c *Client) SubscribeReorders(ctx context.Context, consumerName string, handler ReorderHandler) (jetstream.ConsumeContext, error) {
	consumer, err := c.js.CreateOrUpdateConsumer(ctx, c.stream, jetstream.ConsumerConfig{
		Durable:       consumerName,
		FilterSubject: strings.Join([]string{c.stream, reorderToken, ">"}, "."),
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		var ev domain.ReorderEvent
		if err := json.Unmarshal(msg.Data(), &ev); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject()).Msg("dropping malformed reorder event")
			_ = msg.Term()
			return
		}
		if err := handler(ev); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}
	return consumeCtx, nil
}

func (c *Client) Close() {
	if c.nc != nil {
		c.nc.Close()
	}
}

type noopPublisher struct{}

func (noopPublisher) PublishReorder(ctx context.Context, ev domain.ReorderEvent) error {
	return nil
}

func (noopPublisher) Close() {}
