package reminders

import (
	"sort"
	"time"

	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
)

// DefaultUpcomingWindowDays is the look-ahead used by the dashboard's upcoming list
const DefaultUpcomingWindowDays = 7

// ByPatient returns the reminders addressed to patientID
func ByPatient(reminders []entities.Reminder, patientID string) []entities.Reminder {
	return filter(reminders, func(r *entities.Reminder) bool {
		return r.PatientID == patientID
	})
}

// Pending returns the reminders not yet sent
func Pending(reminders []entities.Reminder) []entities.Reminder {
	return filter(reminders, func(r *entities.Reminder) bool {
		return !r.Sent
	})
}

// SentOnly returns the reminders already sent
func SentOnly(reminders []entities.Reminder) []entities.Reminder {
	return filter(reminders, func(r *entities.Reminder) bool {
		return r.Sent
	})
}

// Upcoming returns pending reminders scheduled no later than windowDays after now
func Upcoming(reminders []entities.Reminder, now time.Time, windowDays int) []entities.Reminder {
	cutoff := now.AddDate(0, 0, windowDays)
	return filter(reminders, func(r *entities.Reminder) bool {
		return !r.Sent && !r.ScheduledFor.After(cutoff)
	})
}

// Due returns pending reminders whose scheduled time has arrived
func Due(reminders []entities.Reminder, now time.Time) []entities.Reminder {
	return Upcoming(reminders, now, 0)
}

// SortBySchedule orders reminders by ScheduledFor ascending, then by ID, in place
func SortBySchedule(reminders []entities.Reminder) {
	sort.SliceStable(reminders, func(i, j int) bool {
		a, b := reminders[i], reminders[j]
		if !a.ScheduledFor.Equal(b.ScheduledFor) {
			return a.ScheduledFor.Before(b.ScheduledFor)
		}
		return a.ID < b.ID
	})
}

func filter(reminders []entities.Reminder, keep func(*entities.Reminder) bool) []entities.Reminder {
	out := make([]entities.Reminder, 0, len(reminders))
	for i := range reminders {
		if keep(&reminders[i]) {
			out = append(out, reminders[i])
		}
	}
	return out
}
