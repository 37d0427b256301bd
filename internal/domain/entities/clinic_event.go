package entities

import (
	"time"

	"github.com/google/uuid"
)

// ClinicEventType represents what changed in the clinic data
type ClinicEventType string

const (
	ClinicEventPatientCreated     ClinicEventType = "patient_created"
	ClinicEventPatientUpdated     ClinicEventType = "patient_updated"
	ClinicEventPatientDeleted     ClinicEventType = "patient_deleted"
	ClinicEventAppointmentCreated ClinicEventType = "appointment_created"
	ClinicEventAppointmentUpdated ClinicEventType = "appointment_updated"
	ClinicEventAppointmentDeleted ClinicEventType = "appointment_deleted"
	ClinicEventReminderSent       ClinicEventType = "reminder_sent"
)

// ClinicEvent tells subscribers that reminders must be re-derived
type ClinicEvent struct {
	ID        string          `json:"id"`
	EventType ClinicEventType `json:"event_type"`
	EntityID  string          `json:"entity_id"`
	PatientID string          `json:"patient_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewClinicEvent creates a new clinic event stamped at now
func NewClinicEvent(eventType ClinicEventType, entityID, patientID string, now time.Time) *ClinicEvent {
	return &ClinicEvent{
		ID:        uuid.NewString(),
		EventType: eventType,
		EntityID:  entityID,
		PatientID: patientID,
		Timestamp: now,
	}
}
