package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/clinic-reminders/backend/internal/adapters/memory"
	"github.com/zatekoja/clinic-reminders/backend/internal/application/services"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/providers"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/clinic-reminders/backend/pkg/errors"
)

// MockPatientSearch is a mock implementation of PatientSearchRepository
type MockPatientSearch struct {
	mock.Mock
}

func (m *MockPatientSearch) Index(ctx context.Context, patient *entities.Patient) error {
	args := m.Called(ctx, patient)
	return args.Error(0)
}

func (m *MockPatientSearch) Remove(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPatientSearch) Search(ctx context.Context, query string, limit int) ([]string, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func newClinicService(store *memory.Store) *services.ClinicService {
	svc := services.NewClinicService(store.Patients(), store.Appointments())
	svc.SetClock(func() time.Time { return fixedNow })
	return svc
}

func TestClinicService_AddPatient(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newClinicService(store)
	last := fixedNow.AddDate(0, -1, 0)

	p, err := svc.AddPatient(ctx, &entities.Patient{
		FirstName: "Ada", LastName: "Lovelace", MissedAppointments: 4,
		EmergencyContact: entities.EmergencyContact{Name: "Byron", LastNotified: &last},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Zero(t, p.MissedAppointments)
	assert.Nil(t, p.EmergencyContact.LastNotified)
	assert.Equal(t, fixedNow, p.CreatedAt)

	stored, err := store.Patients().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", stored.FullName())

	_, err = svc.AddPatient(ctx, &entities.Patient{ID: p.ID, FirstName: "Ada", LastName: "Again"})
	assert.Equal(t, apperrors.ErrorTypeConflict, apperrors.TypeOf(err))

	_, err = svc.AddPatient(ctx, &entities.Patient{FirstName: "NoLastName"})
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
}

func TestClinicService_UpdatePatientKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)
	svc := newClinicService(store)

	original, err := svc.GetPatient(ctx, "pat-2")
	require.NoError(t, err)

	changed := *original
	changed.Phone = "555-000-0000"
	changed.CreatedAt = time.Time{}

	updated, err := svc.UpdatePatient(ctx, &changed)
	require.NoError(t, err)
	assert.Equal(t, original.CreatedAt, updated.CreatedAt)
	assert.Equal(t, fixedNow, updated.UpdatedAt)

	_, err = svc.UpdatePatient(ctx, &entities.Patient{ID: "nobody", FirstName: "A", LastName: "B"})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestClinicService_DeletePatientCascades(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)
	svc := newClinicService(store)

	require.NoError(t, svc.DeletePatient(ctx, "pat-1"))

	_, err := svc.GetPatient(ctx, "pat-1")
	assert.True(t, apperrors.IsNotFound(err))

	left, err := svc.ListAppointments(ctx, repositories.AppointmentFilter{PatientID: "pat-1"})
	require.NoError(t, err)
	assert.Empty(t, left)

	all, err := svc.ListAppointments(ctx, repositories.AppointmentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 8)
}

type failingCascade struct {
	repositories.AppointmentRepository
}

func (failingCascade) DeleteByPatient(ctx context.Context, patientID string) error {
	return apperrors.NewInternalError("failed to delete appointments", errors.New("connection reset"))
}

func TestClinicService_DeletePatientKeepsPatientWhenCascadeFails(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)
	svc := services.NewClinicService(store.Patients(), failingCascade{store.Appointments()})

	err := svc.DeletePatient(ctx, "pat-1")
	assert.Equal(t, apperrors.ErrorTypeInternal, apperrors.TypeOf(err))

	_, err = store.Patients().GetByID(ctx, "pat-1")
	assert.NoError(t, err, "patient stays until its appointments are gone")
}

func TestClinicService_DeleteUnknownPatient(t *testing.T) {
	svc := newClinicService(newSeededStore(t))
	assert.True(t, apperrors.IsNotFound(svc.DeletePatient(context.Background(), "pat-404")))
}

func TestClinicService_AddAppointment(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)
	svc := newClinicService(store)

	apt, err := svc.AddAppointment(ctx, &entities.Appointment{
		PatientID: "pat-2", Date: time.Date(2024, 3, 20, 15, 45, 0, 0, time.UTC), Time: "15:45",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, apt.ID)
	assert.Equal(t, entities.AppointmentStatusScheduled, apt.Status)
	assert.Equal(t, time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), apt.Date)

	_, err = svc.AddAppointment(ctx, &entities.Appointment{PatientID: "nobody", Date: fixedNow})
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))

	_, err = svc.AddAppointment(ctx, &entities.Appointment{
		PatientID: "pat-2", Date: fixedNow.AddDate(0, 0, -3), Status: entities.AppointmentStatusNoShow,
	})
	require.NoError(t, err)
	p, err := svc.GetPatient(ctx, "pat-2")
	require.NoError(t, err)
	assert.Equal(t, 1, p.MissedAppointments)
}

func TestClinicService_NoShowTransitionCountsOnce(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)
	svc := newClinicService(store)

	apt, err := svc.GetAppointment(ctx, "appt-8")
	require.NoError(t, err)

	apt.Status = entities.AppointmentStatusNoShow
	_, err = svc.UpdateAppointment(ctx, apt)
	require.NoError(t, err)

	apt.Notes = "called twice, no answer"
	_, err = svc.UpdateAppointment(ctx, apt)
	require.NoError(t, err)

	p, err := svc.GetPatient(ctx, "pat-2")
	require.NoError(t, err)
	assert.Equal(t, 1, p.MissedAppointments)
}

func TestClinicService_DeleteAppointment(t *testing.T) {
	ctx := context.Background()
	svc := newClinicService(newSeededStore(t))

	require.NoError(t, svc.DeleteAppointment(ctx, "appt-3"))
	_, err := svc.GetAppointment(ctx, "appt-3")
	assert.True(t, apperrors.IsNotFound(err))
	assert.True(t, apperrors.IsNotFound(svc.DeleteAppointment(ctx, "appt-3")))
}

func TestClinicService_SearchPatientsScansStore(t *testing.T) {
	ctx := context.Background()
	svc := newClinicService(newSeededStore(t))

	byName, err := svc.SearchPatients(ctx, "taylor", 0)
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "pat-4", byName[0].ID)

	byMRN, err := svc.SearchPatients(ctx, "mrn1000", 2)
	require.NoError(t, err)
	assert.Len(t, byMRN, 2)

	none, err := svc.SearchPatients(ctx, "zebra", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestClinicService_SearchPatientsUsesIndex(t *testing.T) {
	ctx := context.Background()
	svc := newClinicService(newSeededStore(t))
	search := new(MockPatientSearch)
	svc.SetSearch(search)

	search.On("Search", ctx, "jen", services.DefaultSearchLimit).Return([]string{"pat-2", "pat-gone"}, nil).Once()

	got, err := svc.SearchPatients(ctx, "jen", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Jennifer", got[0].FirstName)
	search.AssertExpectations(t)
}

func TestClinicService_SearchPatientsFallsBackWhenIndexFails(t *testing.T) {
	ctx := context.Background()
	svc := newClinicService(newSeededStore(t))
	search := new(MockPatientSearch)
	svc.SetSearch(search)

	search.On("Search", ctx, "wilson", 5).Return(nil, errors.New("typesense down")).Once()

	got, err := svc.SearchPatients(ctx, "wilson", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "pat-3", got[0].ID)
}

func TestClinicService_IndexesPatients(t *testing.T) {
	ctx := context.Background()
	svc := newClinicService(memory.NewStore())
	search := new(MockPatientSearch)
	svc.SetSearch(search)

	search.On("Index", ctx, mock.MatchedBy(func(p *entities.Patient) bool { return p.ID == "pat-7" })).
		Return(errors.New("index unavailable")).Once()
	search.On("Remove", ctx, "pat-7").Return(nil).Once()

	_, err := svc.AddPatient(ctx, &entities.Patient{ID: "pat-7", FirstName: "Grace", LastName: "Hopper"})
	require.NoError(t, err, "index failures do not fail the write")
	require.NoError(t, svc.DeletePatient(ctx, "pat-7"))
	search.AssertExpectations(t)
}

func TestClinicService_PublishesEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := memory.NewEventBus()
	global, err := bus.Subscribe(ctx, providers.EventChannelClinicUpdates)
	require.NoError(t, err)
	perPatient, err := bus.Subscribe(ctx, providers.GetPatientChannel("pat-5"))
	require.NoError(t, err)

	svc := newClinicService(newSeededStore(t))
	svc.SetEventBus(bus)

	require.NoError(t, svc.DeleteAppointment(ctx, "appt-9"))

	for _, ch := range []<-chan *entities.ClinicEvent{global, perPatient} {
		select {
		case event := <-ch:
			assert.Equal(t, entities.ClinicEventAppointmentDeleted, event.EventType)
			assert.Equal(t, "appt-9", event.EntityID)
			assert.Equal(t, "pat-5", event.PatientID)
			assert.Equal(t, fixedNow, event.Timestamp)
		case <-time.After(time.Second):
			t.Fatal("event not published")
		}
	}
}
