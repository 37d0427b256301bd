package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/clinic-reminders/backend/internal/adapters/memory"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/providers"
	redisclient "github.com/zatekoja/clinic-reminders/backend/internal/infrastructure/clients/redis"
)

// subscription is the part of *redis.PubSub the bus reads from
type subscription interface {
	Channel(opts ...redis.ChannelOption) <-chan *redis.Message
	Close() error
}

// transport carries events between API replicas
type transport interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) subscription
}

type redisTransport struct {
	client *redis.Client
}

func (t redisTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	return t.client.Publish(ctx, channel, payload).Err()
}

func (t redisTransport) Subscribe(ctx context.Context, channel string) subscription {
	return t.client.Subscribe(ctx, channel)
}

// RedisEventBus implements the EventBus interface using Redis Pub/Sub.
// One Redis subscription per channel feeds any number of local subscribers,
// so every API replica sees events published by the others.
//
// Lock order is b.mu before the local bus lock.
type RedisEventBus struct {
	transport transport
	local     *memory.EventBus

	mu            sync.Mutex
	subscriptions map[string]subscription

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) *RedisEventBus {
	return newEventBus(redisTransport{client: client.Client()})
}

func newEventBus(t transport) *RedisEventBus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &RedisEventBus{
		transport:     t,
		local:         memory.NewEventBus(),
		subscriptions: make(map[string]subscription),
		ctx:           ctx,
		cancel:        cancel,
	}
	b.local.OnIdle(b.release)
	return b
}

var _ providers.EventBus = (*RedisEventBus)(nil)

// Publish sends the event through Redis; local subscribers receive it on the way back
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.ClinicEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.transport.Publish(ctx, channel, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Debug().Str("channel", channel).Str("event_id", event.ID).Str("event_type", string(event.EventType)).Msg("Published clinic event")
	return nil
}

// Subscribe subscribes to events on a channel until ctx is done.
// The Redis subscription and the local registration happen under one lock,
// so a concurrent release cannot drop the feed of a new subscriber.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ClinicEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ctx.Err(); err != nil {
		return nil, errors.New("event bus is closed")
	}

	if _, exists := b.subscriptions[channel]; !exists {
		sub := b.transport.Subscribe(b.ctx, channel)
		b.subscriptions[channel] = sub
		go b.receiveMessages(channel, sub)
	}

	events, err := b.local.Subscribe(ctx, channel)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("channel", channel).Int("subscribers", b.local.SubscriberCount(channel)).Msg("Subscribed to clinic events")
	return events, nil
}

func (b *RedisEventBus) receiveMessages(channel string, sub subscription) {
	for msg := range sub.Channel() {
		event, err := decodeEvent(msg.Payload)
		if err != nil {
			log.Warn().Err(err).Str("channel", channel).Msg("Dropping undecodable clinic event")
			continue
		}
		_ = b.local.Publish(b.ctx, channel, event)
	}
}

func decodeEvent(payload string) (*entities.ClinicEvent, error) {
	var event entities.ClinicEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return &event, nil
}

// release closes the Redis subscription of a channel that has no local subscribers left
func (b *RedisEventBus) release(channel string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.local.SubscriberCount(channel) > 0 {
		return
	}
	if sub, ok := b.subscriptions[channel]; ok {
		if err := sub.Close(); err != nil {
			log.Warn().Err(err).Str("channel", channel).Msg("Failed to close Redis subscription")
		}
		delete(b.subscriptions, channel)
	}
}

// Close closes the event bus and all subscriptions
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	b.cancel()
	var errs []error
	for channel, sub := range b.subscriptions {
		if err := sub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close subscription %s: %w", channel, err))
		}
		delete(b.subscriptions, channel)
	}
	b.mu.Unlock()

	errs = append(errs, b.local.Close())
	if err := errors.Join(errs...); err != nil {
		return err
	}

	log.Info().Msg("Event bus closed")
	return nil
}
