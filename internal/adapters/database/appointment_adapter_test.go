package database_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/clinic-reminders/backend/internal/adapters/database"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/clinic-reminders/backend/pkg/errors"
)

var appointmentRowColumns = []string{
	"id", "patient_id", "provider_id", "date", "time", "duration", "type", "status",
	"notes", "follow_up_needed", "follow_up_timeframe", "emergency_contact_notified",
	"created_at", "updated_at",
}

func TestAppointmentAdapter_CreateWritesCalendarDate(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := database.NewAppointmentAdapter(client)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "appointments"`) + `.*'2024-03-10'`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := adapter.Create(context.Background(), &entities.Appointment{
		ID: "appt-1", PatientID: "pat-1",
		Date:   time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC),
		Status: entities.AppointmentStatusScheduled,
	})
	assert.NoError(t, err)
}

func TestAppointmentAdapter_List(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := database.NewAppointmentAdapter(client)
	created := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(appointmentRowColumns).
		AddRow("appt-6", "pat-1", "prov-1", time.Date(2024, 2, 25, 0, 0, 0, 0, time.UTC), "13:30", int64(30),
			"follow-up", "completed", "Responded well", true, int64(60), false, created, created).
		AddRow("appt-10", "pat-1", "prov-2", time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC), "16:30", int64(30),
			"initial", "no-show", nil, false, nil, false, created, created)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE (("patient_id" = 'pat-1') AND ("date" >= '2024-02-01') AND ("date" <= '2024-03-01')) ORDER BY "date" ASC, "time" ASC, "id" ASC`)).
		WillReturnRows(rows)

	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	appointments, err := adapter.List(context.Background(), repositories.AppointmentFilter{PatientID: "pat-1", From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, appointments, 2)

	assert.Equal(t, entities.AppointmentStatusCompleted, appointments[0].Status)
	require.NotNil(t, appointments[0].FollowUpTimeframe)
	assert.Equal(t, 60, *appointments[0].FollowUpTimeframe)
	assert.Equal(t, "Responded well", appointments[0].Notes)

	assert.Equal(t, entities.AppointmentStatusNoShow, appointments[1].Status)
	assert.Nil(t, appointments[1].FollowUpTimeframe)
	assert.Empty(t, appointments[1].Notes)
}

func TestAppointmentAdapter_UpdateNotFound(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := database.NewAppointmentAdapter(client)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "appointments"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := adapter.Update(context.Background(), &entities.Appointment{
		ID: "appt-9", PatientID: "pat-1",
		Date:   time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Status: entities.AppointmentStatusCancelled,
	})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAppointmentAdapter_DeleteByPatient(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := database.NewAppointmentAdapter(client)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "appointments" WHERE ("patient_id" = 'pat-1')`)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	assert.NoError(t, adapter.DeleteByPatient(context.Background(), "pat-1"))
}
