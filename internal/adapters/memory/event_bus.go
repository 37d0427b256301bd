package memory

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/providers"
)

const subscriberBuffer = 100

// EventBus is an in-process providers.EventBus used when Redis is not configured
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.ClinicEvent]struct{}
	closed      bool
	done        chan struct{}
	watchers    sync.WaitGroup
	onIdle      func(channel string)
}

// NewEventBus creates an in-process event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string]map[chan *entities.ClinicEvent]struct{}),
		done:        make(chan struct{}),
	}
}

// OnIdle registers fn to run when the last subscriber of a channel goes away.
// fn runs after the bus lock is released; a subscriber may have arrived in
// the meantime, so fn should check SubscriberCount before tearing down.
func (b *EventBus) OnIdle(fn func(channel string)) {
	b.mu.Lock()
	b.onIdle = fn
	b.mu.Unlock()
}

// SubscriberCount returns the number of live subscribers of channel
func (b *EventBus) SubscriberCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[channel])
}

var _ providers.EventBus = (*EventBus)(nil)

// Publish delivers event to the current subscribers of channel without blocking
func (b *EventBus) Publish(ctx context.Context, channel string, event *entities.ClinicEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for subscriber := range b.subscribers[channel] {
		select {
		case subscriber <- event:
		default:
			log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("subscriber channel full, skipping event")
		}
	}
	return nil
}

// Subscribe registers a subscriber that is removed when ctx is done
func (b *EventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ClinicEvent, error) {
	eventChan := make(chan *entities.ClinicEvent, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(eventChan)
		return eventChan, nil
	}
	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan *entities.ClinicEvent]struct{})
	}
	b.subscribers[channel][eventChan] = struct{}{}
	b.mu.Unlock()

	b.watchers.Add(1)
	go func() {
		defer b.watchers.Done()
		select {
		case <-ctx.Done():
			b.removeSubscriber(channel, eventChan)
		case <-b.done:
		}
	}()

	return eventChan, nil
}

func (b *EventBus) removeSubscriber(channel string, eventChan chan *entities.ClinicEvent) {
	b.mu.Lock()
	subscribers, ok := b.subscribers[channel]
	if !ok {
		b.mu.Unlock()
		return
	}
	if _, ok := subscribers[eventChan]; !ok {
		b.mu.Unlock()
		return
	}
	delete(subscribers, eventChan)
	close(eventChan)

	var onIdle func(string)
	if len(subscribers) == 0 {
		delete(b.subscribers, channel)
		onIdle = b.onIdle
	}
	b.mu.Unlock()

	if onIdle != nil {
		onIdle(channel)
	}
}

// Close closes every subscriber channel and stops their watchers
func (b *EventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	close(b.done)

	for channel, subscribers := range b.subscribers {
		for subscriber := range subscribers {
			close(subscriber)
		}
		delete(b.subscribers, channel)
	}
	b.closed = true
	return nil
}
