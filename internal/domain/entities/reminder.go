package entities

import "time"

// ReminderType represents the purpose of a reminder
type ReminderType string

const (
	ReminderTypeAppointment      ReminderType = "appointment"
	ReminderTypeFollowUp         ReminderType = "follow-up"
	ReminderTypeEmergencyContact ReminderType = "emergency-contact"
)

// DeliveryStatus is the caller-reported outcome of sending a reminder
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// Reminder is a notification task derived from appointment and patient state.
// Reminders are regenerated on every read; ID is stable across derivations.
type Reminder struct {
	ID             string         `json:"id"`
	AppointmentID  string         `json:"appointment_id"`
	PatientID      string         `json:"patient_id"`
	Type           ReminderType   `json:"type"`
	Method         ContactMethod  `json:"method"`
	ScheduledFor   time.Time      `json:"scheduled_for"`
	Message        string         `json:"message"`
	Sent           bool           `json:"sent"`
	SentAt         *time.Time     `json:"sent_at,omitempty"`
	DeliveryStatus DeliveryStatus `json:"delivery_status,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// ReminderState is the persisted "sent" overlay for a derived reminder, matched by ID
type ReminderState struct {
	ReminderID     string         `json:"reminder_id" db:"reminder_id"`
	Sent           bool           `json:"sent" db:"sent"`
	SentAt         *time.Time     `json:"sent_at,omitempty" db:"sent_at"`
	DeliveryStatus DeliveryStatus `json:"delivery_status,omitempty" db:"delivery_status"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// Apply overlays the persisted state onto r
func (s *ReminderState) Apply(r *Reminder) {
	r.Sent = s.Sent
	r.SentAt = s.SentAt
	r.DeliveryStatus = s.DeliveryStatus
}
