package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
)

// AppointmentRepository defines the interface for appointment data operations
type AppointmentRepository interface {
	// Create creates a new appointment
	Create(ctx context.Context, appointment *entities.Appointment) error

	// GetByID retrieves an appointment by ID
	GetByID(ctx context.Context, id string) (*entities.Appointment, error)

	// Update replaces a stored appointment
	Update(ctx context.Context, appointment *entities.Appointment) error

	// Delete removes an appointment
	Delete(ctx context.Context, id string) error

	// DeleteByPatient removes every appointment of a patient
	DeleteByPatient(ctx context.Context, patientID string) error

	// List retrieves appointments matching filter, ordered by date
	List(ctx context.Context, filter AppointmentFilter) ([]entities.Appointment, error)
}

// AppointmentFilter defines filters for listing appointments.
// Zero values leave the corresponding criterion unset.
type AppointmentFilter struct {
	PatientID string
	Status    entities.AppointmentStatus
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// Matches reports whether a satisfies the non-paging criteria of f
func (f AppointmentFilter) Matches(a *entities.Appointment) bool {
	if f.PatientID != "" && a.PatientID != f.PatientID {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.From != nil && a.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && a.Date.After(*f.To) {
		return false
	}
	return true
}
