package entities

import (
	"strings"
	"time"

	apperrors "github.com/zatekoja/clinic-reminders/backend/pkg/errors"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusNoShow    AppointmentStatus = "no-show"
)

// Valid reports whether s is a known status
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow:
		return true
	}
	return false
}

// AppointmentType is the clinical purpose of a visit
type AppointmentType string

const (
	AppointmentTypeInitial   AppointmentType = "initial"
	AppointmentTypeFollowUp  AppointmentType = "follow-up"
	AppointmentTypeEmergency AppointmentType = "emergency"
	AppointmentTypeRoutine   AppointmentType = "routine"
)

// Appointment represents a scheduled visit of a patient with a provider.
// Date carries the calendar day (midnight UTC); Time is the clock time shown to the patient.
type Appointment struct {
	ID                       string            `json:"id" db:"id"`
	PatientID                string            `json:"patient_id" db:"patient_id"`
	ProviderID               string            `json:"provider_id" db:"provider_id"`
	Date                     time.Time         `json:"date" db:"date"`
	Time                     string            `json:"time" db:"time"`
	Duration                 int               `json:"duration" db:"duration"`
	Type                     AppointmentType   `json:"type" db:"type"`
	Status                   AppointmentStatus `json:"status" db:"status"`
	Notes                    string            `json:"notes,omitempty" db:"notes"`
	FollowUpNeeded           bool              `json:"follow_up_needed" db:"follow_up_needed"`
	FollowUpTimeframe        *int              `json:"follow_up_timeframe,omitempty" db:"follow_up_timeframe"`
	EmergencyContactNotified bool              `json:"emergency_contact_notified" db:"emergency_contact_notified"`
	CreatedAt                time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt                time.Time         `json:"updated_at" db:"updated_at"`
}

// Validate checks the fields every stored appointment must carry
func (a *Appointment) Validate() error {
	switch {
	case strings.TrimSpace(a.ID) == "":
		return invalid("appointment id is required")
	case strings.TrimSpace(a.PatientID) == "":
		return invalid("appointment patient id is required")
	case a.Date.IsZero():
		return invalid("appointment date is required")
	case !a.Status.Valid():
		return invalid("unknown appointment status " + string(a.Status))
	case a.Duration < 0:
		return invalid("appointment duration must not be negative")
	}
	return nil
}

// CalendarDate truncates t to midnight UTC of its calendar day
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Days returns a pointer to n, for FollowUpTimeframe literals
func Days(n int) *int {
	return &n
}

func invalid(msg string) error {
	return apperrors.NewValidationError(msg)
}

// NewAppointment builds a scheduled appointment on the calendar day of date, stamped at now
func NewAppointment(id, patientID string, date time.Time, clock string, now time.Time) (*Appointment, error) {
	a := &Appointment{
		ID:        id,
		PatientID: patientID,
		Date:      CalendarDate(date),
		Time:      clock,
		Status:    AppointmentStatusScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}
