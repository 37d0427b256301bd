package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/clinic-reminders/backend/internal/application/services"
)

// DashboardService defines the overview computation the handler needs
type DashboardService interface {
	Stats(ctx context.Context) (*services.DashboardStats, error)
}

// DashboardHandler serves the clinic overview
type DashboardHandler struct {
	service DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// GetStats handles GET /api/dashboard/stats
func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}
