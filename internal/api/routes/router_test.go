package routes_test

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
	"github.com/zatekoja/clinic-reminders/backend/internal/api/routes"
	"github.com/zatekoja/clinic-reminders/backend/internal/application/services"
	"github.com/zatekoja/clinic-reminders/backend/pkg/config"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, metricsHandler http.Handler) http.Handler {
	t.Helper()
	return newConfiguredServer(t, metricsHandler, config.ServerConfig{AllowedOrigins: []string{"*"}})
}

func newConfiguredServer(t *testing.T, metricsHandler http.Handler, server config.ServerConfig) http.Handler {
	t.Helper()
	store := memory.NewStore()
	patients, appointments := memory.SeedFixtures(now)
	require.NoError(t, store.Load(patients, appointments))
	clock := func() time.Time { return now }

	bus := memory.NewEventBus()
	clinic := services.NewClinicService(store.Patients(), store.Appointments())
	clinic.SetClock(clock)
	clinic.SetEventBus(bus)
	reminderSvc := services.NewReminderService(store.Patients(), store.Appointments(), store.ReminderStates(), 7)
	reminderSvc.SetClock(clock)

	router := routes.NewRouter(
		handlers.NewPatientHandler(clinic),
		handlers.NewAppointmentHandler(clinic),
		handlers.NewReminderHandler(reminderSvc),
		handlers.NewSSEHandler(bus),
		nil,
		server,
	)
	dashboard := services.NewDashboardService(store.Patients(), store.Appointments(), reminderSvc)
	dashboard.SetClock(clock)
	router.SetDashboardHandler(handlers.NewDashboardHandler(dashboard))
	if metricsHandler != nil {
		router.SetMetricsHandler(metricsHandler)
	}
	return router.SetupRoutes()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_Health(t *testing.T) {
	w := do(t, newTestServer(t, nil), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestRouter_MetricsOnlyWhenConfigured(t *testing.T) {
	w := do(t, newTestServer(t, nil), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	scrape := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# HELP up\n"))
	})
	w = do(t, newTestServer(t, scrape), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_SearchIsNotShadowedByID(t *testing.T) {
	w := do(t, newTestServer(t, nil), http.MethodGet, "/api/patients/search?q=brown", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
}

func TestRouter_NoShowFlowEscalates(t *testing.T) {
	h := newTestServer(t, nil)

	// pat-2 misses two visits; the second no-show crosses the escalation threshold.
	for _, id := range []string{"appt-2", "appt-8"} {
		w := do(t, h, http.MethodPut, "/api/appointments/"+id,
			`{"patient_id":"pat-2","date":"2024-02-25","time":"10:00","status":"no-show"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := do(t, h, http.MethodGet, "/api/patients/pat-2/reminders?view=due", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Reminders []struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"reminders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	// One escalation per no-show appointment; the reminders are not deduplicated.
	require.Len(t, list.Reminders, 2)
	for _, r := range list.Reminders {
		assert.Equal(t, "emergency-contact", r.Type)
	}

	w = do(t, h, http.MethodPost, "/api/reminders/"+list.Reminders[0].ID+"/sent", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/api/patients/pat-2", "")
	require.Equal(t, http.StatusOK, w.Code)
	var patient struct {
		MissedAppointments int `json:"missed_appointments"`
		EmergencyContact   struct {
			LastNotified *time.Time `json:"last_notified"`
		} `json:"emergency_contact"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &patient))
	assert.Equal(t, 2, patient.MissedAppointments)
	require.NotNil(t, patient.EmergencyContact.LastNotified)
	assert.True(t, now.Equal(*patient.EmergencyContact.LastNotified))
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	w := do(t, newTestServer(t, nil), http.MethodPatch, "/api/reminders", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRouter_DashboardStats(t *testing.T) {
	w := do(t, newTestServer(t, nil), http.MethodGet, "/api/dashboard/stats", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		TotalPatients int `json:"total_patients"`
		Upcoming      int `json:"upcoming_appointments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 5, body.TotalPatients)
	assert.Equal(t, 7, body.Upcoming)
}

func TestRouter_RateLimitsWritesOnly(t *testing.T) {
	h := newConfiguredServer(t, nil, config.ServerConfig{
		AllowedOrigins: []string{"*"},
		RateLimitRPS:   1,
		RateLimitBurst: 1,
	})

	w := do(t, h, http.MethodPost, "/api/reminders/rem-apt-appt-2/sent", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(t, h, http.MethodDelete, "/api/appointments/appt-3", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)
		assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/reminders", "").Code)
		assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/patients/pat-1", "").Code)
	}
}
