// Package memory provides an in-process clinic store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/clinic-reminders/backend/pkg/errors"
)

// Store holds patients, appointments and reminder states in memory.
// It is owned by the caller and passed to services explicitly.
type Store struct {
	mu           sync.RWMutex
	patients     map[string]entities.Patient
	appointments map[string]entities.Appointment
	states       map[string]entities.ReminderState
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		patients:     make(map[string]entities.Patient),
		appointments: make(map[string]entities.Appointment),
		states:       make(map[string]entities.ReminderState),
	}
}

// Patients returns the store's PatientRepository view
func (s *Store) Patients() repositories.PatientRepository {
	return &patientRepo{s}
}

// Appointments returns the store's AppointmentRepository view
func (s *Store) Appointments() repositories.AppointmentRepository {
	return &appointmentRepo{s}
}

// ReminderStates returns the store's ReminderStateRepository view
func (s *Store) ReminderStates() repositories.ReminderStateRepository {
	return &stateRepo{s}
}

// Reset empties the store, including reminder states
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.patients = make(map[string]entities.Patient)
	s.appointments = make(map[string]entities.Appointment)
	s.states = make(map[string]entities.ReminderState)
}

// Load replaces the store contents with the given records
func (s *Store) Load(patients []entities.Patient, appointments []entities.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.patients = make(map[string]entities.Patient, len(patients))
	s.appointments = make(map[string]entities.Appointment, len(appointments))
	for i := range patients {
		if err := patients[i].Validate(); err != nil {
			return err
		}
		s.patients[patients[i].ID] = clonePatient(patients[i])
	}
	for i := range appointments {
		if err := appointments[i].Validate(); err != nil {
			return err
		}
		s.appointments[appointments[i].ID] = cloneAppointment(appointments[i])
	}
	return nil
}

type patientRepo struct{ s *Store }

func (r *patientRepo) Create(ctx context.Context, patient *entities.Patient) error {
	if err := patient.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.patients[patient.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("patient with id %s already exists", patient.ID))
	}
	r.s.patients[patient.ID] = clonePatient(*patient)
	return nil
}

func (r *patientRepo) GetByID(ctx context.Context, id string) (*entities.Patient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.patients[id]
	if !ok {
		return nil, patientNotFound(id)
	}
	p = clonePatient(p)
	return &p, nil
}

func (r *patientRepo) Update(ctx context.Context, patient *entities.Patient) error {
	if err := patient.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.patients[patient.ID]; !ok {
		return patientNotFound(patient.ID)
	}
	r.s.patients[patient.ID] = clonePatient(*patient)
	return nil
}

func (r *patientRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.patients[id]; !ok {
		return patientNotFound(id)
	}
	delete(r.s.patients, id)
	return nil
}

func (r *patientRepo) List(ctx context.Context, filter repositories.PatientFilter) ([]entities.Patient, error) {
	r.s.mu.RLock()
	out := make([]entities.Patient, 0, len(r.s.patients))
	for _, p := range r.s.patients {
		out = append(out, clonePatient(p))
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		if out[i].FirstName != out[j].FirstName {
			return out[i].FirstName < out[j].FirstName
		}
		return out[i].ID < out[j].ID
	})
	return page(out, filter.Offset, filter.Limit), nil
}

func (r *patientRepo) IncrementMissedAppointments(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.patients[id]
	if !ok {
		return patientNotFound(id)
	}
	p.MissedAppointments++
	r.s.patients[id] = p
	return nil
}

func (r *patientRepo) SetEmergencyContactNotified(ctx context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.patients[id]
	if !ok {
		return patientNotFound(id)
	}
	p.EmergencyContact.LastNotified = &at
	r.s.patients[id] = p
	return nil
}

type appointmentRepo struct{ s *Store }

func (r *appointmentRepo) Create(ctx context.Context, appointment *entities.Appointment) error {
	if err := appointment.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.appointments[appointment.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("appointment with id %s already exists", appointment.ID))
	}
	r.s.appointments[appointment.ID] = cloneAppointment(*appointment)
	return nil
}

func (r *appointmentRepo) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.appointments[id]
	if !ok {
		return nil, appointmentNotFound(id)
	}
	a = cloneAppointment(a)
	return &a, nil
}

func (r *appointmentRepo) Update(ctx context.Context, appointment *entities.Appointment) error {
	if err := appointment.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.appointments[appointment.ID]; !ok {
		return appointmentNotFound(appointment.ID)
	}
	r.s.appointments[appointment.ID] = cloneAppointment(*appointment)
	return nil
}

func (r *appointmentRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.appointments[id]; !ok {
		return appointmentNotFound(id)
	}
	delete(r.s.appointments, id)
	return nil
}

func (r *appointmentRepo) DeleteByPatient(ctx context.Context, patientID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, a := range r.s.appointments {
		if a.PatientID == patientID {
			delete(r.s.appointments, id)
		}
	}
	return nil
}

func (r *appointmentRepo) List(ctx context.Context, filter repositories.AppointmentFilter) ([]entities.Appointment, error) {
	r.s.mu.RLock()
	out := make([]entities.Appointment, 0, len(r.s.appointments))
	for _, a := range r.s.appointments {
		if filter.Matches(&a) {
			out = append(out, cloneAppointment(a))
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].ID < out[j].ID
	})
	return page(out, filter.Offset, filter.Limit), nil
}

type stateRepo struct{ s *Store }

func (r *stateRepo) GetByIDs(ctx context.Context, ids []string) (map[string]entities.ReminderState, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[string]entities.ReminderState, len(ids))
	for _, id := range ids {
		if st, ok := r.s.states[id]; ok {
			out[id] = st
		}
	}
	return out, nil
}

func (r *stateRepo) MarkSent(ctx context.Context, reminderID string, at time.Time, status entities.DeliveryStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if st, ok := r.s.states[reminderID]; ok && st.Sent {
		return false, nil
	}
	r.s.states[reminderID] = entities.ReminderState{
		ReminderID:     reminderID,
		Sent:           true,
		SentAt:         &at,
		DeliveryStatus: status,
		UpdatedAt:      at,
	}
	return true, nil
}

func (r *stateRepo) List(ctx context.Context) ([]entities.ReminderState, error) {
	r.s.mu.RLock()
	out := make([]entities.ReminderState, 0, len(r.s.states))
	for _, st := range r.s.states {
		out = append(out, st)
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ReminderID < out[j].ReminderID })
	return out, nil
}

func patientNotFound(id string) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("patient with id %s not found", id))
}

func appointmentNotFound(id string) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
}

func page[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func clonePatient(p entities.Patient) entities.Patient {
	if p.EmergencyContact.LastNotified != nil {
		t := *p.EmergencyContact.LastNotified
		p.EmergencyContact.LastNotified = &t
	}
	return p
}

func cloneAppointment(a entities.Appointment) entities.Appointment {
	if a.FollowUpTimeframe != nil {
		n := *a.FollowUpTimeframe
		a.FollowUpTimeframe = &n
	}
	return a
}
