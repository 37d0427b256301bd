package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/zatekoja/clinic-reminders/backend/internal/application/services"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
)

// ReminderService defines the reminder operations the handler needs
type ReminderService interface {
	List(ctx context.Context, q services.ReminderQuery) ([]entities.Reminder, error)
	MarkSent(ctx context.Context, id string, status entities.DeliveryStatus) (*entities.Reminder, error)
	Stats(ctx context.Context) (*services.ReminderStats, error)
}

// ReminderHandler handles reminder HTTP requests
type ReminderHandler struct {
	service ReminderService
}

// NewReminderHandler creates a new reminder handler
func NewReminderHandler(service ReminderService) *ReminderHandler {
	return &ReminderHandler{
		service: service,
	}
}

// ListReminders handles GET /api/reminders?view=&patient_id=&window_days=
func (h *ReminderHandler) ListReminders(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, r.URL.Query().Get("patient_id"))
}

// ListPatientReminders handles GET /api/patients/{id}/reminders
func (h *ReminderHandler) ListPatientReminders(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, r.PathValue("id"))
}

func (h *ReminderHandler) list(w http.ResponseWriter, r *http.Request, patientID string) {
	view, err := services.ParseReminderView(r.URL.Query().Get("view"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	windowDays, err := queryInt(r, "window_days", 0)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	reminders, err := h.service.List(r.Context(), services.ReminderQuery{
		PatientID:  patientID,
		View:       view,
		WindowDays: windowDays,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"view":      view,
		"reminders": reminders,
		"count":     len(reminders),
	})
}

type markSentRequest struct {
	DeliveryStatus entities.DeliveryStatus `json:"delivery_status"`
}

// MarkSent handles POST /api/reminders/{id}/sent. The body is optional.
func (h *ReminderHandler) MarkSent(w http.ResponseWriter, r *http.Request) {
	var req markSentRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondWithError(w, http.StatusBadRequest, "invalid request payload")
			return
		}
	}

	reminder, err := h.service.MarkSent(r.Context(), r.PathValue("id"), req.DeliveryStatus)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, reminder)
}

// GetStats handles GET /api/reminders/stats
func (h *ReminderHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}
