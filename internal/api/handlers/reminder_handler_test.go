package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/clinic-reminders/backend/internal/adapters/memory"
	"github.com/zatekoja/clinic-reminders/backend/internal/api/handlers"
	"github.com/zatekoja/clinic-reminders/backend/internal/application/services"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
)

var handlerNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newReminderHandler(t *testing.T) *handlers.ReminderHandler {
	t.Helper()
	store := memory.NewStore()
	patients, appointments := memory.SeedFixtures(handlerNow)
	require.NoError(t, store.Load(patients, appointments))

	svc := services.NewReminderService(store.Patients(), store.Appointments(), store.ReminderStates(), 7)
	svc.SetClock(func() time.Time { return handlerNow })
	return handlers.NewReminderHandler(svc)
}

type reminderList struct {
	View      string              `json:"view"`
	Reminders []entities.Reminder `json:"reminders"`
	Count     int                 `json:"count"`
}

func listReminders(t *testing.T, handler *handlers.ReminderHandler, target string) (int, reminderList) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	handler.ListReminders(w, req)

	var out reminderList
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func TestReminderHandler_ListReminders(t *testing.T) {
	handler := newReminderHandler(t)

	code, all := listReminders(t, handler, "/api/reminders")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "all", all.View)
	assert.Equal(t, 8, all.Count)

	_, due := listReminders(t, handler, "/api/reminders?view=due")
	require.Len(t, due.Reminders, 1)
	assert.Equal(t, entities.ReminderTypeEmergencyContact, due.Reminders[0].Type)
	assert.Equal(t, entities.ContactCall, due.Reminders[0].Method)

	_, mine := listReminders(t, handler, "/api/reminders?patient_id=pat-1")
	assert.Equal(t, 2, mine.Count)

	code, _ = listReminders(t, handler, "/api/reminders?view=overdue")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = listReminders(t, handler, "/api/reminders?view=upcoming&window_days=soon")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestReminderHandler_ListPatientReminders(t *testing.T) {
	handler := newReminderHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/patients/pat-4/reminders?view=pending", nil)
	req.SetPathValue("id", "pat-4")
	w := httptest.NewRecorder()
	handler.ListPatientReminders(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var out reminderList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 2, out.Count, "appointment reminder plus escalation")

	missing := httptest.NewRequest(http.MethodGet, "/api/patients/nobody/reminders", nil)
	missing.SetPathValue("id", "nobody")
	w = httptest.NewRecorder()
	handler.ListPatientReminders(w, missing)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReminderHandler_MarkSent(t *testing.T) {
	handler := newReminderHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/reminders/rem-apt-appt-2/sent", nil)
	req.SetPathValue("id", "rem-apt-appt-2")
	w := httptest.NewRecorder()
	handler.MarkSent(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var reminder entities.Reminder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reminder))
	assert.True(t, reminder.Sent)
	assert.Equal(t, entities.DeliveryDelivered, reminder.DeliveryStatus)

	_, sent := listReminders(t, handler, "/api/reminders?view=sent")
	assert.Equal(t, 1, sent.Count)

	failed := httptest.NewRequest(http.MethodPost, "/api/reminders/rem-apt-appt-4/sent", bytes.NewBufferString(`{"delivery_status":"failed"}`))
	failed.SetPathValue("id", "rem-apt-appt-4")
	w = httptest.NewRecorder()
	handler.MarkSent(w, failed)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reminder))
	assert.Equal(t, entities.DeliveryFailed, reminder.DeliveryStatus)

	unknown := httptest.NewRequest(http.MethodPost, "/api/reminders/rem-apt-nope/sent", nil)
	unknown.SetPathValue("id", "rem-apt-nope")
	w = httptest.NewRecorder()
	handler.MarkSent(w, unknown)
	assert.Equal(t, http.StatusNotFound, w.Code)

	garbage := httptest.NewRequest(http.MethodPost, "/api/reminders/rem-apt-appt-5/sent", bytes.NewBufferString(`{`))
	garbage.SetPathValue("id", "rem-apt-appt-5")
	w = httptest.NewRecorder()
	handler.MarkSent(w, garbage)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReminderHandler_GetStats(t *testing.T) {
	handler := newReminderHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/reminders/stats", nil)
	w := httptest.NewRecorder()
	handler.GetStats(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var stats services.ReminderStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 8, stats.Total)
	assert.Equal(t, 8, stats.Pending)
	assert.Equal(t, 1, stats.Due)
	assert.Equal(t, 6, stats.Upcoming)
	assert.Equal(t, 6, stats.ByType[entities.ReminderTypeAppointment])
}
