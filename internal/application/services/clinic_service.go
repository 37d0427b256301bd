package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/providers"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/clinic-reminders/backend/pkg/errors"
)

// DefaultSearchLimit caps patient search results when the caller gives no limit
const DefaultSearchLimit = 20

// ClinicService handles patient and appointment records.
// Every successful mutation publishes a ClinicEvent so reminder views can re-derive.
type ClinicService struct {
	patients     repositories.PatientRepository
	appointments repositories.AppointmentRepository
	search       repositories.PatientSearchRepository
	eventBus     providers.EventBus
	now          func() time.Time
}

// NewClinicService creates a new clinic service
func NewClinicService(patients repositories.PatientRepository, appointments repositories.AppointmentRepository) *ClinicService {
	return &ClinicService{
		patients:     patients,
		appointments: appointments,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SetSearch enables the patient search index
func (s *ClinicService) SetSearch(search repositories.PatientSearchRepository) {
	s.search = search
}

// SetEventBus sets the event bus for change notifications
func (s *ClinicService) SetEventBus(eventBus providers.EventBus) {
	s.eventBus = eventBus
}

// SetClock replaces the wall clock
func (s *ClinicService) SetClock(now func() time.Time) {
	s.now = now
}

// AddPatient registers a patient. A missing ID is generated; the missed
// appointment history always starts empty.
func (s *ClinicService) AddPatient(ctx context.Context, patient *entities.Patient) (*entities.Patient, error) {
	p := *patient
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := s.now()
	p.MissedAppointments = 0
	p.EmergencyContact.LastNotified = nil
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.patients.Create(ctx, &p); err != nil {
		return nil, err
	}

	s.index(ctx, &p)
	s.publish(ctx, entities.ClinicEventPatientCreated, p.ID, p.ID)
	return &p, nil
}

// GetPatient retrieves a patient by ID
func (s *ClinicService) GetPatient(ctx context.Context, id string) (*entities.Patient, error) {
	return s.patients.GetByID(ctx, id)
}

// ListPatients retrieves patients ordered by name
func (s *ClinicService) ListPatients(ctx context.Context, filter repositories.PatientFilter) ([]entities.Patient, error) {
	return s.patients.List(ctx, filter)
}

// UpdatePatient replaces a patient's record, keeping its creation time
func (s *ClinicService) UpdatePatient(ctx context.Context, patient *entities.Patient) (*entities.Patient, error) {
	existing, err := s.patients.GetByID(ctx, patient.ID)
	if err != nil {
		return nil, err
	}

	p := *patient
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = s.now()

	if err := s.patients.Update(ctx, &p); err != nil {
		return nil, err
	}

	s.index(ctx, &p)
	s.publish(ctx, entities.ClinicEventPatientUpdated, p.ID, p.ID)
	return &p, nil
}

// DeletePatient removes a patient together with their appointments.
// Appointments go first so a failed cascade never leaves orphans that
// keep producing reminders.
func (s *ClinicService) DeletePatient(ctx context.Context, id string) error {
	if _, err := s.patients.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.appointments.DeleteByPatient(ctx, id); err != nil {
		return err
	}
	if err := s.patients.Delete(ctx, id); err != nil {
		return err
	}

	if s.search != nil {
		if err := s.search.Remove(ctx, id); err != nil {
			log.Warn().Err(err).Str("patient_id", id).Msg("Failed to remove patient from search index")
		}
	}
	s.publish(ctx, entities.ClinicEventPatientDeleted, id, id)
	return nil
}

// SearchPatients finds patients by name, email, phone or medical record number.
// The search index is used when configured; otherwise, or when it fails, the
// store is scanned.
func (s *ClinicService) SearchPatients(ctx context.Context, query string, limit int) ([]entities.Patient, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	if s.search != nil {
		ids, err := s.search.Search(ctx, query, limit)
		if err == nil {
			return s.patientsByID(ctx, ids)
		}
		log.Warn().Err(err).Str("query", query).Msg("Patient search index failed, scanning store")
	}

	all, err := s.patients.List(ctx, repositories.PatientFilter{})
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	matches := make([]entities.Patient, 0)
	for i := range all {
		if needle == "" || patientMatches(&all[i], needle) {
			matches = append(matches, all[i])
			if len(matches) == limit {
				break
			}
		}
	}
	return matches, nil
}

func patientMatches(p *entities.Patient, needle string) bool {
	for _, field := range []string{p.FullName(), p.Email, p.Phone, p.MedicalRecordNumber} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func (s *ClinicService) patientsByID(ctx context.Context, ids []string) ([]entities.Patient, error) {
	patients := make([]entities.Patient, 0, len(ids))
	for _, id := range ids {
		p, err := s.patients.GetByID(ctx, id)
		if apperrors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		patients = append(patients, *p)
	}
	return patients, nil
}

// AddAppointment books an appointment for an existing patient
func (s *ClinicService) AddAppointment(ctx context.Context, appointment *entities.Appointment) (*entities.Appointment, error) {
	a := *appointment
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = entities.AppointmentStatusScheduled
	}
	a.Date = entities.CalendarDate(a.Date)
	now := s.now()
	a.CreatedAt = now
	a.UpdatedAt = now

	if err := s.requirePatient(ctx, a.PatientID); err != nil {
		return nil, err
	}
	if err := s.appointments.Create(ctx, &a); err != nil {
		return nil, err
	}
	if a.Status == entities.AppointmentStatusNoShow {
		if err := s.patients.IncrementMissedAppointments(ctx, a.PatientID); err != nil {
			return nil, err
		}
	}

	s.publish(ctx, entities.ClinicEventAppointmentCreated, a.ID, a.PatientID)
	return &a, nil
}

// GetAppointment retrieves an appointment by ID
func (s *ClinicService) GetAppointment(ctx context.Context, id string) (*entities.Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

// ListAppointments retrieves appointments matching filter
func (s *ClinicService) ListAppointments(ctx context.Context, filter repositories.AppointmentFilter) ([]entities.Appointment, error) {
	return s.appointments.List(ctx, filter)
}

// UpdateAppointment replaces an appointment. Moving it into no-show counts
// one missed appointment against the patient; staying in no-show does not.
func (s *ClinicService) UpdateAppointment(ctx context.Context, appointment *entities.Appointment) (*entities.Appointment, error) {
	existing, err := s.appointments.GetByID(ctx, appointment.ID)
	if err != nil {
		return nil, err
	}

	a := *appointment
	a.Date = entities.CalendarDate(a.Date)
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = s.now()

	if a.PatientID != existing.PatientID {
		if err := s.requirePatient(ctx, a.PatientID); err != nil {
			return nil, err
		}
	}
	if err := s.appointments.Update(ctx, &a); err != nil {
		return nil, err
	}
	if a.Status == entities.AppointmentStatusNoShow && existing.Status != entities.AppointmentStatusNoShow {
		if err := s.patients.IncrementMissedAppointments(ctx, a.PatientID); err != nil {
			return nil, err
		}
	}

	s.publish(ctx, entities.ClinicEventAppointmentUpdated, a.ID, a.PatientID)
	return &a, nil
}

// DeleteAppointment removes an appointment
func (s *ClinicService) DeleteAppointment(ctx context.Context, id string) error {
	existing, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.appointments.Delete(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, entities.ClinicEventAppointmentDeleted, id, existing.PatientID)
	return nil
}

func (s *ClinicService) requirePatient(ctx context.Context, patientID string) error {
	if strings.TrimSpace(patientID) == "" {
		return apperrors.NewValidationError("appointment patient id is required")
	}
	_, err := s.patients.GetByID(ctx, patientID)
	if apperrors.IsNotFound(err) {
		return apperrors.NewValidationError(fmt.Sprintf("unknown patient %s", patientID))
	}
	return err
}

func (s *ClinicService) index(ctx context.Context, p *entities.Patient) {
	if s.search == nil {
		return
	}
	if err := s.search.Index(ctx, p); err != nil {
		log.Warn().Err(err).Str("patient_id", p.ID).Msg("Failed to index patient")
	}
}

func (s *ClinicService) publish(ctx context.Context, eventType entities.ClinicEventType, entityID, patientID string) {
	publishClinicEvent(ctx, s.eventBus, entities.NewClinicEvent(eventType, entityID, patientID, s.now()))
}

// publishClinicEvent fans an event out to the global and the patient channel.
// Failures are logged; the store is the source of truth.
func publishClinicEvent(ctx context.Context, eventBus providers.EventBus, event *entities.ClinicEvent) {
	if eventBus == nil {
		return
	}
	channels := []string{providers.EventChannelClinicUpdates}
	if event.PatientID != "" {
		channels = append(channels, providers.GetPatientChannel(event.PatientID))
	}
	for _, channel := range channels {
		if err := eventBus.Publish(ctx, channel, event); err != nil {
			log.Warn().Err(err).Str("channel", channel).Str("event_type", string(event.EventType)).Msg("Failed to publish clinic event")
		}
	}
}
