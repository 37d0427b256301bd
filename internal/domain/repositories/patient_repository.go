package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
)

// PatientRepository defines the interface for patient data operations
type PatientRepository interface {
	// Create creates a new patient
	Create(ctx context.Context, patient *entities.Patient) error

	// GetByID retrieves a patient by ID
	GetByID(ctx context.Context, id string) (*entities.Patient, error)

	// Update replaces a stored patient
	Update(ctx context.Context, patient *entities.Patient) error

	// Delete removes a patient
	Delete(ctx context.Context, id string) error

	// List retrieves patients ordered by last name
	List(ctx context.Context, filter PatientFilter) ([]entities.Patient, error)

	// IncrementMissedAppointments bumps the no-show counter of a patient
	IncrementMissedAppointments(ctx context.Context, id string) error

	// SetEmergencyContactNotified records when the emergency contact was last called
	SetEmergencyContactNotified(ctx context.Context, id string, at time.Time) error
}

// PatientFilter defines paging for listing patients
type PatientFilter struct {
	Limit  int
	Offset int
}

// PatientSearchRepository indexes patients for free-text lookup
type PatientSearchRepository interface {
	// Index upserts a patient document
	Index(ctx context.Context, patient *entities.Patient) error

	// Remove deletes a patient document
	Remove(ctx context.Context, id string) error

	// Search returns the IDs of patients matching query, best match first
	Search(ctx context.Context, query string, limit int) ([]string, error)
}
