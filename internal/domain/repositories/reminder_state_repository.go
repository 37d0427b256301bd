package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
)

// ReminderStateRepository persists which derived reminders were sent.
// Reminders themselves are never stored; state is matched by reminder ID.
type ReminderStateRepository interface {
	// GetByIDs returns the states known for ids, keyed by reminder ID
	GetByIDs(ctx context.Context, ids []string) (map[string]entities.ReminderState, error)

	// MarkSent records that a reminder was sent at the given time. It reports
	// false and leaves the stored state alone when the reminder was already sent.
	MarkSent(ctx context.Context, reminderID string, at time.Time, status entities.DeliveryStatus) (bool, error)

	// List returns every stored state
	List(ctx context.Context) ([]entities.ReminderState, error)
}
