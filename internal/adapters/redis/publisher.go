// Package redis fans registry changes out over Redis pub/sub.
//
// A Publisher forwards every Change of an attached registry to a channel.
// Follow reads the channel and mirrors one session into a local registry
// through SetOpened and SetSelected. Those do not notify subscribers, so a
// mirror never republishes what it receives.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/vango-dev/nested/internal/logging"
	"github.com/vango-dev/nested/pkg/nested"
)

// DefaultChannel is the channel used when none is configured.
const DefaultChannel = "nested:changes"

// Message is the JSON payload published for every change.
type Message struct {
	Session string            `json:"session"`
	Kind    nested.ChangeKind `json:"kind"`
	Values  []string          `json:"values"`
}

// Publisher publishes registry changes to a Redis channel.
type Publisher struct {
	client  *backend.Client
	channel string
	timeout time.Duration
	logger  *slog.Logger
}

type Option func(*Publisher)

// WithChannel sets the channel name.
func WithChannel(channel string) Option {
	return func(p *Publisher) {
		if channel != "" {
			p.channel = channel
		}
	}
}

// WithTimeout bounds each PUBLISH issued from a subscriber callback.
func WithTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		p.timeout = d
	}
}

// WithLogger sets the logger for publish failures.
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a publisher with its own client.
func New(address, password string, db int, opts ...Option) *Publisher {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a publisher from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Publisher {
	p := &Publisher{
		client:  client,
		channel: DefaultChannel,
		timeout: 2 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Client returns the underlying client.
func (p *Publisher) Client() *backend.Client {
	return p.client
}

// Channel returns the channel changes are published to.
func (p *Publisher) Channel() string {
	return p.channel
}

// Publish sends one change for session.
func (p *Publisher) Publish(ctx context.Context, session string, c nested.Change) error {
	data, err := json.Marshal(Message{Session: session, Kind: c.Kind, Values: c.Values})
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

// Attach publishes every change of reg under session until the returned
// function is called.
func (p *Publisher) Attach(session string, reg *nested.Registry) (detach func()) {
	return reg.Subscribe(func(c nested.Change) {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := p.Publish(ctx, session, c); err != nil {
			p.logger.Warn("redis publish failed", "session", session, "kind", c.Kind, "error", err)
		}
	})
}

// Close closes the client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
