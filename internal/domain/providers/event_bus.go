package providers

import (
	"context"

	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to clinic events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.ClinicEvent) error

	// Subscribe subscribes to events on a channel until ctx is done
	Subscribe(ctx context.Context, channel string) (<-chan *entities.ClinicEvent, error)

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelClinicUpdates carries every patient, appointment and reminder change
	EventChannelClinicUpdates = "clinic:updates"

	// EventChannelPatientPrefix is the prefix for patient-specific channels
	EventChannelPatientPrefix = "clinic:patient:"
)

// GetPatientChannel returns the channel name for a specific patient
func GetPatientChannel(patientID string) string {
	return EventChannelPatientPrefix + patientID
}
