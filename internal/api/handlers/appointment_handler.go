package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/clinic-reminders/backend/pkg/errors"
)

// AppointmentService defines the appointment operations the handler needs
type AppointmentService interface {
	AddAppointment(ctx context.Context, appointment *entities.Appointment) (*entities.Appointment, error)
	GetAppointment(ctx context.Context, id string) (*entities.Appointment, error)
	ListAppointments(ctx context.Context, filter repositories.AppointmentFilter) ([]entities.Appointment, error)
	UpdateAppointment(ctx context.Context, appointment *entities.Appointment) (*entities.Appointment, error)
	DeleteAppointment(ctx context.Context, id string) error
}

// appointmentRequest is the write payload; Date takes a plain calendar day
type appointmentRequest struct {
	PatientID                string                     `json:"patient_id"`
	ProviderID               string                     `json:"provider_id"`
	Date                     string                     `json:"date"`
	Time                     string                     `json:"time"`
	Duration                 int                        `json:"duration"`
	Type                     entities.AppointmentType   `json:"type"`
	Status                   entities.AppointmentStatus `json:"status"`
	Notes                    string                     `json:"notes"`
	FollowUpNeeded           bool                       `json:"follow_up_needed"`
	FollowUpTimeframe        *int                       `json:"follow_up_timeframe"`
	EmergencyContactNotified bool                       `json:"emergency_contact_notified"`
}

func (req *appointmentRequest) toEntity(id string) (*entities.Appointment, error) {
	if req.Date == "" {
		return nil, apperrors.NewValidationError("appointment date is required")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	return &entities.Appointment{
		ID:                       id,
		PatientID:                req.PatientID,
		ProviderID:               req.ProviderID,
		Date:                     date,
		Time:                     req.Time,
		Duration:                 req.Duration,
		Type:                     req.Type,
		Status:                   req.Status,
		Notes:                    req.Notes,
		FollowUpNeeded:           req.FollowUpNeeded,
		FollowUpTimeframe:        req.FollowUpTimeframe,
		EmergencyContactNotified: req.EmergencyContactNotified,
	}, nil
}

// AppointmentHandler handles appointment HTTP requests
type AppointmentHandler struct {
	service AppointmentService
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(service AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
	}
}

// ListAppointments handles GET /api/appointments?patient_id=&status=&from=&to=
func (h *AppointmentHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	filter, err := appointmentFilter(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	appointments, err := h.service.ListAppointments(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"appointments": appointments,
		"count":        len(appointments),
	})
}

func appointmentFilter(r *http.Request) (repositories.AppointmentFilter, error) {
	query := r.URL.Query()
	filter := repositories.AppointmentFilter{
		PatientID: query.Get("patient_id"),
		Status:    entities.AppointmentStatus(query.Get("status")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return filter, apperrors.NewValidationError("unknown appointment status " + string(filter.Status))
	}

	bounds := []struct {
		name string
		dst  **time.Time
	}{{"from", &filter.From}, {"to", &filter.To}}
	for _, b := range bounds {
		raw := query.Get(b.name)
		if raw == "" {
			continue
		}
		t, err := parseDate(raw)
		if err != nil {
			return filter, err
		}
		day := entities.CalendarDate(t)
		*b.dst = &day
	}

	var err error
	filter.Limit, filter.Offset, err = pageParams(r)
	return filter, err
}

// CreateAppointment handles POST /api/appointments
func (h *AppointmentHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req appointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	appointment, err := req.toEntity("")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	created, err := h.service.AddAppointment(r.Context(), appointment)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

// GetAppointment handles GET /api/appointments/{id}
func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	appointment, err := h.service.GetAppointment(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, appointment)
}

// UpdateAppointment handles PUT /api/appointments/{id}
func (h *AppointmentHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	var req appointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	appointment, err := req.toEntity(r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	updated, err := h.service.UpdateAppointment(r.Context(), appointment)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

// DeleteAppointment handles DELETE /api/appointments/{id}
func (h *AppointmentHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAppointment(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
