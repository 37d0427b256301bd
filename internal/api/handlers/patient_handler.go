package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/repositories"
)

// PatientService defines the patient operations the handler needs
type PatientService interface {
	AddPatient(ctx context.Context, patient *entities.Patient) (*entities.Patient, error)
	GetPatient(ctx context.Context, id string) (*entities.Patient, error)
	ListPatients(ctx context.Context, filter repositories.PatientFilter) ([]entities.Patient, error)
	UpdatePatient(ctx context.Context, patient *entities.Patient) (*entities.Patient, error)
	DeletePatient(ctx context.Context, id string) error
	SearchPatients(ctx context.Context, query string, limit int) ([]entities.Patient, error)
}

// PatientHandler handles patient HTTP requests
type PatientHandler struct {
	service PatientService
}

// NewPatientHandler creates a new patient handler
func NewPatientHandler(service PatientService) *PatientHandler {
	return &PatientHandler{
		service: service,
	}
}

// ListPatients handles GET /api/patients
func (h *PatientHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	patients, err := h.service.ListPatients(r.Context(), repositories.PatientFilter{Limit: limit, Offset: offset})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"patients": patients,
		"count":    len(patients),
	})
}

// CreatePatient handles POST /api/patients
func (h *PatientHandler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var patient entities.Patient
	if err := decodeJSON(r, &patient); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	created, err := h.service.AddPatient(r.Context(), &patient)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

// GetPatient handles GET /api/patients/{id}
func (h *PatientHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	patient, err := h.service.GetPatient(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, patient)
}

// UpdatePatient handles PUT /api/patients/{id}
func (h *PatientHandler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	var patient entities.Patient
	if err := decodeJSON(r, &patient); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	patient.ID = r.PathValue("id")

	updated, err := h.service.UpdatePatient(r.Context(), &patient)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

// DeletePatient handles DELETE /api/patients/{id}
func (h *PatientHandler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePatient(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SearchPatients handles GET /api/patients/search?q=
func (h *PatientHandler) SearchPatients(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	query := r.URL.Query().Get("q")
	patients, err := h.service.SearchPatients(r.Context(), query, limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"query":    query,
		"patients": patients,
		"count":    len(patients),
	})
}
