package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/clinic-reminders/backend/internal/adapters/memory"
	"github.com/zatekoja/clinic-reminders/backend/internal/application/services"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
)

func newDashboardService(t *testing.T, store *memory.Store) *services.DashboardService {
	t.Helper()
	svc := services.NewDashboardService(store.Patients(), store.Appointments(), newReminderService(t, store))
	svc.SetClock(func() time.Time { return fixedNow })
	return svc
}

func TestDashboardService_StatsOverFixtures(t *testing.T) {
	stats, err := newDashboardService(t, newSeededStore(t)).Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, fixedNow, stats.GeneratedAt)
	assert.Equal(t, 5, stats.TotalPatients)
	assert.Zero(t, stats.TodayAppointments)
	assert.Equal(t, 7, stats.UpcomingAppointments)
	assert.Equal(t, 1, stats.MissedAppointments)
	assert.Equal(t, 2, stats.RemindersDueSoon, "appt-1 reminder tomorrow and the emergency call now")

	assert.Equal(t, map[entities.ContactMethod]int{
		entities.ContactEmail:    2,
		entities.ContactSMS:      1,
		entities.ContactWhatsApp: 1,
		entities.ContactCall:     1,
	}, stats.ContactMethods)

	require.Len(t, stats.NewPatientsByMonth, 6)
	assert.Equal(t, "2023-10", stats.NewPatientsByMonth[0].Month)
	assert.Equal(t, "2024-03", stats.NewPatientsByMonth[5].Month)
	for _, m := range stats.NewPatientsByMonth {
		assert.Zero(t, m.Count, m.Month)
	}

	c := stats.FollowUpCompliance
	assert.Equal(t, 2, c.Needed)
	assert.Equal(t, 2, c.Scheduled)
	assert.Zero(t, c.Missed)
	assert.Equal(t, 100, c.Rate)
	assert.Equal(t, map[entities.AppointmentType]int{
		entities.AppointmentTypeInitial:   0,
		entities.AppointmentTypeFollowUp:  100,
		entities.AppointmentTypeRoutine:   0,
		entities.AppointmentTypeEmergency: 100,
	}, c.ByType)
}

func TestDashboardService_SentRemindersAreNotDueSoon(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)
	_, err := newReminderService(t, store).MarkSent(ctx, "rem-apt-appt-1", "")
	require.NoError(t, err)

	stats, err := newDashboardService(t, store).Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.RemindersDueSoon)
}

func TestDashboardService_TodayAndNewPatients(t *testing.T) {
	store := memory.NewStore()
	patients := []entities.Patient{
		{ID: "p-1", FirstName: "Ada", LastName: "King", CreatedAt: fixedNow.Add(-time.Hour)},
		{ID: "p-2", FirstName: "Bea", LastName: "Lane", CreatedAt: time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)},
		{ID: "p-3", FirstName: "Cal", LastName: "Moss", CreatedAt: time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "p-4", FirstName: "Dee", LastName: "Nash", CreatedAt: time.Date(2023, 9, 30, 23, 59, 0, 0, time.UTC)},
	}
	appointments := []entities.Appointment{
		{ID: "a-1", PatientID: "p-1", Date: entities.CalendarDate(fixedNow), Time: "16:00", Status: entities.AppointmentStatusScheduled},
		{ID: "a-2", PatientID: "p-2", Date: entities.CalendarDate(fixedNow), Time: "08:00", Status: entities.AppointmentStatusCompleted},
		{ID: "a-3", PatientID: "p-3", Date: entities.CalendarDate(fixedNow).AddDate(0, 0, -1), Time: "08:00", Status: entities.AppointmentStatusScheduled},
	}
	require.NoError(t, store.Load(patients, appointments))

	stats, err := newDashboardService(t, store).Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TodayAppointments)
	assert.Equal(t, 1, stats.UpcomingAppointments, "past scheduled visits are not upcoming")

	counts := make([]int, len(stats.NewPatientsByMonth))
	for i, m := range stats.NewPatientsByMonth {
		counts[i] = m.Count
	}
	assert.Equal(t, []int{1, 0, 0, 0, 1, 1}, counts)
}
