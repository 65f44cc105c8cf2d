// Package events publishes scene activity to an external bus.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rwandaorbitguard/orbit-guard/internal/logging"
)

// Channels events are published on.
const (
	ChannelTicks       = "orbitguard.ticks"
	ChannelCollisions  = "orbitguard.collisions"
	ChannelPredictions = "orbitguard.predictions"
)

// TickEvent summarises a propagation tick.
type TickEvent struct {
	Scene      string    `json:"scene"`
	Time       float64   `json:"time"`
	Satellites int       `json:"satellites"`
	Debris     int       `json:"debris"`
	At         time.Time `json:"at"`
}

// CollisionsEvent summarises a refreshed prediction set.
type CollisionsEvent struct {
	Scene      string         `json:"scene"`
	Total      int            `json:"total"`
	BySeverity map[string]int `json:"bySeverity"`
	At         time.Time      `json:"at"`
}

// PredictionEvent records an answer from the external prediction service.
type PredictionEvent struct {
	Status         string    `json:"status"`
	MissDistanceKm float64   `json:"missDistanceKm"`
	Severity       string    `json:"severity"`
	At             time.Time `json:"at"`
}

// Publisher sends JSON-encoded payloads to a named channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
	Close() error
}

// Noop discards everything.
func Noop() Publisher { return noopPublisher{} }

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, any) error { return nil }
func (noopPublisher) Close() error                               { return nil }

// RedisClient is the subset of *redis.Client the publisher uses.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisPublisher publishes with Redis PUBLISH.
type RedisPublisher struct {
	client RedisClient
	log    logging.Logger
}

// NewRedisPublisher wraps an existing client.
func NewRedisPublisher(client RedisClient, log logging.Logger) *RedisPublisher {
	if log == nil {
		log = logging.Noop()
	}
	return &RedisPublisher{client: client, log: log}
}

// DialRedis connects to addr and verifies the server answers PING.
func DialRedis(ctx context.Context, addr string, log logging.Logger) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedisPublisher(client, log), nil
}

// Publish encodes payload as JSON and publishes it on channel.
func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", channel, err)
	}
	if err := p.client.Publish(ctx, channel, body).Err(); err != nil {
		p.log.Warn(ctx, "publish failed", logging.String("channel", channel), logging.Err(err))
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// Close closes the underlying client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Message is a payload captured by a MemoryPublisher.
type Message struct {
	Channel string
	Payload json.RawMessage
}

// MemoryPublisher keeps published messages in memory.
type MemoryPublisher struct {
	mu       sync.Mutex
	messages []Message
}

// Publish records payload.
func (m *MemoryPublisher) Publish(_ context.Context, channel string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", channel, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, Message{Channel: channel, Payload: body})
	return nil
}

// Close is a no-op.
func (m *MemoryPublisher) Close() error { return nil }

// Messages returns the messages published on channel, or all messages when
// channel is empty.
func (m *MemoryPublisher) Messages(channel string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Message
	for _, msg := range m.messages {
		if channel == "" || msg.Channel == channel {
			out = append(out, msg)
		}
	}
	return out
}
