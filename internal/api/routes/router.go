package routes

import (
	"net/http"

	"github.com/zatekoja/clinic-reminders/backend/internal/api/handlers"
	"github.com/zatekoja/clinic-reminders/backend/internal/api/middleware"
	"github.com/zatekoja/clinic-reminders/backend/internal/infrastructure/observability"
	"github.com/zatekoja/clinic-reminders/backend/pkg/config"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	patientHandler     *handlers.PatientHandler
	appointmentHandler *handlers.AppointmentHandler
	reminderHandler    *handlers.ReminderHandler
	sseHandler         *handlers.SSEHandler
	dashboardHandler   *handlers.DashboardHandler

	metricsHandler http.Handler
	metrics        *observability.Metrics
	server         config.ServerConfig
}

// NewRouter creates a new router
func NewRouter(
	patientHandler *handlers.PatientHandler,
	appointmentHandler *handlers.AppointmentHandler,
	reminderHandler *handlers.ReminderHandler,
	sseHandler *handlers.SSEHandler,
	metrics *observability.Metrics,
	server config.ServerConfig,
) *Router {
	return &Router{
		mux:                http.NewServeMux(),
		patientHandler:     patientHandler,
		appointmentHandler: appointmentHandler,
		reminderHandler:    reminderHandler,
		sseHandler:         sseHandler,
		metrics:            metrics,
		server:             server,
	}
}

// SetMetricsHandler exposes a Prometheus scrape endpoint at GET /metrics
func (r *Router) SetMetricsHandler(h http.Handler) {
	r.metricsHandler = h
}

// SetDashboardHandler exposes the clinic overview at GET /api/dashboard/stats
func (r *Router) SetDashboardHandler(h *handlers.DashboardHandler) {
	r.dashboardHandler = h
}

// SetupRoutes configures all application routes.
// Only writes share the rate limiter; reads and the live stream are unlimited.
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	if r.metricsHandler != nil {
		r.mux.Handle("GET /metrics", r.metricsHandler)
	}

	limit := middleware.RateLimit(r.server.RateLimitRPS, r.server.RateLimitBurst)
	write := func(pattern string, h http.HandlerFunc) {
		r.mux.Handle(pattern, limit(h))
	}

	// Patients
	r.mux.HandleFunc("GET /api/patients", r.patientHandler.ListPatients)
	write("POST /api/patients", r.patientHandler.CreatePatient)
	r.mux.HandleFunc("GET /api/patients/search", r.patientHandler.SearchPatients)
	r.mux.HandleFunc("GET /api/patients/{id}", r.patientHandler.GetPatient)
	write("PUT /api/patients/{id}", r.patientHandler.UpdatePatient)
	write("DELETE /api/patients/{id}", r.patientHandler.DeletePatient)
	r.mux.HandleFunc("GET /api/patients/{id}/reminders", r.reminderHandler.ListPatientReminders)

	// Appointments
	r.mux.HandleFunc("GET /api/appointments", r.appointmentHandler.ListAppointments)
	write("POST /api/appointments", r.appointmentHandler.CreateAppointment)
	r.mux.HandleFunc("GET /api/appointments/{id}", r.appointmentHandler.GetAppointment)
	write("PUT /api/appointments/{id}", r.appointmentHandler.UpdateAppointment)
	write("DELETE /api/appointments/{id}", r.appointmentHandler.DeleteAppointment)

	// Reminders
	r.mux.HandleFunc("GET /api/reminders", r.reminderHandler.ListReminders)
	r.mux.HandleFunc("GET /api/reminders/stats", r.reminderHandler.GetStats)
	write("POST /api/reminders/{id}/sent", r.reminderHandler.MarkSent)

	if r.dashboardHandler != nil {
		r.mux.HandleFunc("GET /api/dashboard/stats", r.dashboardHandler.GetStats)
	}

	// Live updates
	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/stream/clinic", r.sseHandler.StreamClinicUpdates)
	}

	// Observability wraps the mux directly so it sees the matched pattern.
	// CORS is outermost so rejected responses carry headers.
	var handler http.Handler = r.mux
	handler = middleware.Observability(r.metrics)(handler)
	handler = middleware.Logging(handler)
	handler = middleware.CORS(r.server.AllowedOrigins)(handler)

	return handler
}
