package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	apperrors "github.com/zatekoja/clinic-reminders/backend/pkg/errors"
)

func TestPatient_Validate(t *testing.T) {
	tests := []struct {
		name    string
		patient Patient
		wantErr bool
	}{
		{"valid", Patient{ID: "pat-1", FirstName: "Jane", LastName: "Doe", PreferredContactMethod: ContactSMS}, false},
		{"missing id", Patient{FirstName: "Jane", LastName: "Doe"}, true},
		{"missing last name", Patient{ID: "pat-1", FirstName: "Jane"}, true},
		{"negative missed count", Patient{ID: "pat-1", FirstName: "Jane", LastName: "Doe", MissedAppointments: -1}, true},
		{"unknown contact method", Patient{ID: "pat-1", FirstName: "Jane", LastName: "Doe", PreferredContactMethod: "pigeon"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patient.Validate()
			if tt.wantErr {
				assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAppointment_Validate(t *testing.T) {
	base := Appointment{
		ID: "appt-1", PatientID: "pat-1",
		Date:   time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Status: AppointmentStatusScheduled,
	}
	assert.NoError(t, base.Validate())

	noDate := base
	noDate.Date = time.Time{}
	assert.Error(t, noDate.Validate())

	badStatus := base
	badStatus.Status = "rescheduled"
	assert.Error(t, badStatus.Validate())

	orphan := base
	orphan.PatientID = " "
	assert.Error(t, orphan.Validate())
}

func TestCalendarDate(t *testing.T) {
	got := CalendarDate(time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), got)
}

func TestReminderState_Apply(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	state := ReminderState{ReminderID: "rem-apt-1", Sent: true, SentAt: &at, DeliveryStatus: DeliveryDelivered}
	r := Reminder{ID: "rem-apt-1"}

	state.Apply(&r)

	assert.True(t, r.Sent)
	assert.Equal(t, &at, r.SentAt)
	assert.Equal(t, DeliveryDelivered, r.DeliveryStatus)
}

func TestNewPatient(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	p, err := NewPatient("pat-1", " Jane ", "Doe", now)
	assert.NoError(t, err)
	assert.Equal(t, "Jane", p.FirstName)
	assert.Zero(t, p.MissedAppointments)
	assert.Equal(t, now, p.CreatedAt)

	_, err = NewPatient("pat-1", "", "Doe", now)
	assert.Error(t, err)
}

func TestNewAppointment(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	a, err := NewAppointment("appt-1", "pat-1", time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC), "14:30", now)
	assert.NoError(t, err)
	assert.Equal(t, AppointmentStatusScheduled, a.Status)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), a.Date)

	_, err = NewAppointment("appt-1", "", now, "09:00", now)
	assert.Error(t, err)
}
