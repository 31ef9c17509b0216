package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/V4T54L/floor-sync/internal/adapter/metrics"
	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/redis/go-redis/v9"
)

// EventBroker publishes live events on a Redis pub/sub channel and hands out
// subscriptions to it. Delivery is at-most-once.
type EventBroker struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
	metrics *metrics.SyncMetrics
}

// NewEventBroker creates a broker bound to channel.
func NewEventBroker(client *redis.Client, channel string, logger *slog.Logger, m *metrics.SyncMetrics) *EventBroker {
	return &EventBroker{
		client:  client,
		channel: channel,
		logger:  logger.With("component", "redis_event_broker"),
		metrics: m,
	}
}

// Publish sends event to every subscribed process.
func (b *EventBroker) Publish(ctx context.Context, event domain.LiveEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal live event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.count("error")
		return fmt.Errorf("failed to PUBLISH to %s: %w", b.channel, err)
	}
	b.count("published")
	return nil
}

func (b *EventBroker) count(status string) {
	if b.metrics != nil {
		b.metrics.EventsPublished.WithLabelValues(status).Inc()
	}
}

// Subscription is one process's listener on the live event channel.
type Subscription struct {
	pubsub *redis.PubSub
	logger *slog.Logger
}

// Subscribe opens a subscription and waits for Redis to confirm it, so events
// published after Subscribe returns are not missed.
func (b *EventBroker) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}
	b.logger.Info("Subscribed to live event channel", "channel", b.channel)
	return &Subscription{pubsub: pubsub, logger: b.logger}, nil
}

// Run decodes messages and passes them to handler until ctx is done or the
// subscription is closed. Malformed messages are logged and skipped.
func (s *Subscription) Run(ctx context.Context, handler func(domain.LiveEvent)) {
	ch := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event domain.LiveEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				s.logger.Warn("Failed to unmarshal live event, skipping", "error", err, "payload", msg.Payload)
				continue
			}
			handler(event)
		}
	}
}

// Close ends the subscription.
func (s *Subscription) Close() error {
	return s.pubsub.Close()
}
