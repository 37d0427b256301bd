package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/providers"
)

func TestDecodeEvent(t *testing.T) {
	event := entities.NewClinicEvent(entities.ClinicEventReminderSent, "rem-emg-appt-10", "pat-4",
		time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	got, err := decodeEvent(string(payload))
	require.NoError(t, err)
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, entities.ClinicEventReminderSent, got.EventType)
	assert.Equal(t, "pat-4", got.PatientID)
	assert.True(t, event.Timestamp.Equal(got.Timestamp))
}

func TestDecodeEvent_Malformed(t *testing.T) {
	_, err := decodeEvent("{not json")
	assert.Error(t, err)
}

// fakeTransport routes published payloads to open subscriptions in memory
type fakeTransport struct {
	mu   sync.Mutex
	subs map[string][]*fakeSubscription
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{subs: map[string][]*fakeSubscription{}}
}

func (f *fakeTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs[channel] {
		sub.deliver(&redis.Message{Channel: channel, Payload: string(payload)})
	}
	return nil
}

func (f *fakeTransport) Subscribe(ctx context.Context, channel string) subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &fakeSubscription{messages: make(chan *redis.Message, 16)}
	f.subs[channel] = append(f.subs[channel], sub)
	return sub
}

// open returns how many subscriptions of channel are still open
func (f *fakeTransport) open(channel string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, sub := range f.subs[channel] {
		if !sub.isClosed() {
			n++
		}
	}
	return n
}

type fakeSubscription struct {
	mu       sync.Mutex
	closed   bool
	messages chan *redis.Message
}

func (s *fakeSubscription) Channel(opts ...redis.ChannelOption) <-chan *redis.Message {
	return s.messages
}

func (s *fakeSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.messages)
	}
	return nil
}

func (s *fakeSubscription) deliver(msg *redis.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.messages <- msg
	}
}

func (s *fakeSubscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func receive(t *testing.T, events <-chan *entities.ClinicEvent) *entities.ClinicEvent {
	t.Helper()
	select {
	case event, ok := <-events:
		require.True(t, ok, "subscriber channel closed")
		return event
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
		return nil
	}
}

func TestRedisEventBus_PublishReachesSubscribers(t *testing.T) {
	transport := newFakeTransport()
	bus := newEventBus(transport)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := bus.Subscribe(ctx, providers.EventChannelClinicUpdates)
	require.NoError(t, err)
	second, err := bus.Subscribe(ctx, providers.EventChannelClinicUpdates)
	require.NoError(t, err)
	assert.Equal(t, 1, transport.open(providers.EventChannelClinicUpdates), "one upstream subscription per channel")

	event := entities.NewClinicEvent(entities.ClinicEventPatientUpdated, "pat-1", "pat-1", time.Now())
	require.NoError(t, bus.Publish(ctx, providers.EventChannelClinicUpdates, event))

	assert.Equal(t, event.ID, receive(t, first).ID)
	assert.Equal(t, event.ID, receive(t, second).ID)
}

func TestRedisEventBus_ReleasesIdleChannel(t *testing.T) {
	transport := newFakeTransport()
	bus := newEventBus(transport)
	defer bus.Close()

	channel := providers.GetPatientChannel("pat-4")
	ctx, cancel := context.WithCancel(context.Background())
	_, err := bus.Subscribe(ctx, channel)
	require.NoError(t, err)
	require.Equal(t, 1, transport.open(channel))

	cancel()

	assert.Eventually(t, func() bool { return transport.open(channel) == 0 }, time.Second, 5*time.Millisecond)
}

func TestRedisEventBus_SubscribeDuringRelease(t *testing.T) {
	channel := providers.EventChannelClinicUpdates

	for i := 0; i < 200; i++ {
		transport := newFakeTransport()
		bus := newEventBus(transport)

		leaving, cancelLeaving := context.WithCancel(context.Background())
		old, err := bus.Subscribe(leaving, channel)
		require.NoError(t, err)

		staying, cancelStaying := context.WithCancel(context.Background())
		var joined <-chan *entities.ClinicEvent
		var joinErr error
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			joined, joinErr = bus.Subscribe(staying, channel)
		}()
		cancelLeaving()
		wg.Wait()
		require.NoError(t, joinErr)

		for range old {
		}

		event := entities.NewClinicEvent(entities.ClinicEventAppointmentUpdated, "appt-1", "pat-1", time.Now())
		require.NoError(t, bus.Publish(context.Background(), channel, event))
		assert.Equal(t, event.ID, receive(t, joined).ID, "iteration %d", i)
		assert.Equal(t, 1, transport.open(channel), "iteration %d", i)

		cancelStaying()
		require.NoError(t, bus.Close())
	}
}

func TestRedisEventBus_Close(t *testing.T) {
	transport := newFakeTransport()
	bus := newEventBus(transport)

	events, err := bus.Subscribe(context.Background(), providers.EventChannelClinicUpdates)
	require.NoError(t, err)

	require.NoError(t, bus.Close())

	_, ok := <-events
	assert.False(t, ok)
	assert.Zero(t, transport.open(providers.EventChannelClinicUpdates))

	_, err = bus.Subscribe(context.Background(), providers.EventChannelClinicUpdates)
	assert.Error(t, err)
}
