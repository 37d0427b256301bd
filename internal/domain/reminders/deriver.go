// Package reminders derives reminder tasks from appointment and patient state.
//
// Derivation is pure: the same appointments, patients and now always produce
// the same reminders, including their IDs. Nothing here remembers which
// reminders were sent; callers overlay that state by reminder ID.
package reminders

import (
	"fmt"
	"time"

	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
)

const day = 24 * time.Hour

// Reminder ID prefixes, one per reminder type
const (
	appointmentIDPrefix = "rem-apt-"
	followUpIDPrefix    = "rem-fup-"
	emergencyIDPrefix   = "rem-emg-"
)

// FollowUpDateLayout renders follow-up dates in the clinic's short US format
const FollowUpDateLayout = "1/2/2006"

// Policy holds the timing and escalation constants of the derivation rules
type Policy struct {
	// AppointmentLeadDays is how long before the visit the pre-appointment reminder fires
	AppointmentLeadDays int
	// FollowUpLeadDays is how long before the follow-up date the patient is nudged
	FollowUpLeadDays int
	// EscalationThreshold is the missed appointment count that triggers emergency contact calls
	EscalationThreshold int
	// EscalationCooldown suppresses repeat emergency contact calls
	EscalationCooldown time.Duration

	AppointmentMethod entities.ContactMethod
	FollowUpMethod    entities.ContactMethod
	EmergencyMethod   entities.ContactMethod
}

// DefaultPolicy returns the clinic's standing reminder policy.
// Methods are fixed and do not consult Patient.PreferredContactMethod.
func DefaultPolicy() Policy {
	return Policy{
		AppointmentLeadDays: 1,
		FollowUpLeadDays:    7,
		EscalationThreshold: 2,
		EscalationCooldown:  30 * day,
		AppointmentMethod:   entities.ContactEmail,
		FollowUpMethod:      entities.ContactEmail,
		EmergencyMethod:     entities.ContactCall,
	}
}

// Deriver applies a Policy to appointment snapshots
type Deriver struct {
	Policy Policy
}

// NewDeriver creates a deriver using the default policy
func NewDeriver() *Deriver {
	return &Deriver{Policy: DefaultPolicy()}
}

// Derive computes the reminders for appointments using the default policy
func Derive(appointments []entities.Appointment, patients []entities.Patient, now time.Time) []entities.Reminder {
	return NewDeriver().Derive(appointments, patients, now)
}

// Derive evaluates the pre-appointment, follow-up and emergency contact
// rules for every appointment. Output order follows the input and carries
// no scheduling meaning; use SortBySchedule for display.
func (d *Deriver) Derive(appointments []entities.Appointment, patients []entities.Patient, now time.Time) []entities.Reminder {
	byID := make(map[string]*entities.Patient, len(patients))
	for i := range patients {
		byID[patients[i].ID] = &patients[i]
	}

	out := make([]entities.Reminder, 0, len(appointments))
	for i := range appointments {
		apt := &appointments[i]
		if r, ok := d.appointmentReminder(apt, now); ok {
			out = append(out, r)
		}
		if r, ok := d.followUpReminder(apt, now); ok {
			out = append(out, r)
		}
		if r, ok := d.emergencyContactReminder(apt, byID[apt.PatientID], now); ok {
			out = append(out, r)
		}
	}
	return out
}

func (d *Deriver) appointmentReminder(apt *entities.Appointment, now time.Time) (entities.Reminder, bool) {
	if apt.Status == entities.AppointmentStatusCompleted || apt.Status == entities.AppointmentStatusCancelled {
		return entities.Reminder{}, false
	}

	remindAt := apt.Date.AddDate(0, 0, -d.Policy.AppointmentLeadDays)
	if !remindAt.After(now) {
		return entities.Reminder{}, false
	}

	return entities.Reminder{
		ID:            AppointmentReminderID(apt.ID),
		AppointmentID: apt.ID,
		PatientID:     apt.PatientID,
		Type:          entities.ReminderTypeAppointment,
		Method:        d.Policy.AppointmentMethod,
		ScheduledFor:  remindAt,
		Message:       fmt.Sprintf("Reminder: You have an appointment tomorrow at %s", apt.Time),
		CreatedAt:     now,
	}, true
}

func (d *Deriver) followUpReminder(apt *entities.Appointment, now time.Time) (entities.Reminder, bool) {
	if apt.Status != entities.AppointmentStatusCompleted || !apt.FollowUpNeeded {
		return entities.Reminder{}, false
	}
	if apt.FollowUpTimeframe == nil || *apt.FollowUpTimeframe <= 0 {
		return entities.Reminder{}, false
	}

	followUpDate := apt.Date.AddDate(0, 0, *apt.FollowUpTimeframe)
	remindAt := followUpDate.AddDate(0, 0, -d.Policy.FollowUpLeadDays)
	if !remindAt.After(now) {
		return entities.Reminder{}, false
	}

	return entities.Reminder{
		ID:            FollowUpReminderID(apt.ID),
		AppointmentID: apt.ID,
		PatientID:     apt.PatientID,
		Type:          entities.ReminderTypeFollowUp,
		Method:        d.Policy.FollowUpMethod,
		ScheduledFor:  remindAt,
		Message: fmt.Sprintf("It's time to schedule your follow-up appointment for %s",
			followUpDate.Format(FollowUpDateLayout)),
		CreatedAt: now,
	}, true
}

// emergencyContactReminder escalates repeated no-shows to the patient's
// emergency contact. Appointments whose patient is unknown are skipped.
func (d *Deriver) emergencyContactReminder(apt *entities.Appointment, patient *entities.Patient, now time.Time) (entities.Reminder, bool) {
	if apt.Status != entities.AppointmentStatusNoShow || apt.EmergencyContactNotified {
		return entities.Reminder{}, false
	}
	if patient == nil || patient.MissedAppointments < d.Policy.EscalationThreshold {
		return entities.Reminder{}, false
	}

	last := patient.EmergencyContact.LastNotified
	if last != nil && now.Sub(*last) <= d.Policy.EscalationCooldown {
		return entities.Reminder{}, false
	}

	return entities.Reminder{
		ID:            EmergencyContactReminderID(apt.ID),
		AppointmentID: apt.ID,
		PatientID:     apt.PatientID,
		Type:          entities.ReminderTypeEmergencyContact,
		Method:        d.Policy.EmergencyMethod,
		ScheduledFor:  now,
		Message: fmt.Sprintf("Your family member %s %s has missed multiple appointments. "+
			"Please help ensure they receive necessary medical care.", patient.FirstName, patient.LastName),
		CreatedAt: now,
	}, true
}

// AppointmentReminderID returns the ID of the pre-appointment reminder for appointmentID
func AppointmentReminderID(appointmentID string) string {
	return appointmentIDPrefix + appointmentID
}

// FollowUpReminderID returns the ID of the follow-up reminder for appointmentID
func FollowUpReminderID(appointmentID string) string {
	return followUpIDPrefix + appointmentID
}

// EmergencyContactReminderID returns the ID of the escalation reminder for appointmentID
func EmergencyContactReminderID(appointmentID string) string {
	return emergencyIDPrefix + appointmentID
}
