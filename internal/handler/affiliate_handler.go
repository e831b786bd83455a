package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tubira/affiliates-api/internal/middleware"
	"github.com/tubira/affiliates-api/internal/models"
	apierrors "github.com/tubira/affiliates-api/internal/pkg/errors"
	"github.com/tubira/affiliates-api/internal/pkg/response"
	"github.com/tubira/affiliates-api/internal/service"
)

// AffiliateHandler handles the admin affiliate surface.
type AffiliateHandler struct {
	affiliates service.AffiliateService
}

// NewAffiliateHandler creates a new affiliate handler.
func NewAffiliateHandler(affiliates service.AffiliateService) *AffiliateHandler {
	return &AffiliateHandler{affiliates: affiliates}
}

// Routes returns the admin affiliate routes.
func (h *AffiliateHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/export", h.Export)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
	return r
}

func statusFilter(r *http.Request) *models.AffiliateStatus {
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.AffiliateStatus(raw)
		return &status
	}
	return nil
}

// List handles GET /api/admin/affiliates
func (h *AffiliateHandler) List(w http.ResponseWriter, r *http.Request) {
	affiliates, err := h.affiliates.List(r.Context(), statusFilter(r))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, affiliates)
}

// Get handles GET /api/admin/affiliates/{id}
func (h *AffiliateHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, apierrors.NewValidationError("id", "invalid UUID format"))
		return
	}

	affiliate, err := h.affiliates.Get(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, affiliate)
}

type updateStatusRequest struct {
	Status models.AffiliateStatus `json:"status"`
}

// UpdateStatus handles PATCH /api/admin/affiliates/{id}/status
func (h *AffiliateHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, apierrors.NewValidationError("id", "invalid UUID format"))
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}

	actor := middleware.AdminFromContext(r.Context())
	affiliate, err := h.affiliates.UpdateStatus(r.Context(), id, req.Status, actor)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, affiliate)
}

// Export handles GET /api/admin/affiliates/export
func (h *AffiliateHandler) Export(w http.ResponseWriter, r *http.Request) {
	header, rows, err := h.affiliates.ExportCSV(r.Context(), statusFilter(r))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.CSV(w, "affiliates.csv", header, rows)
}

// Dashboard handles GET /api/admin/dashboard
func (h *AffiliateHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.affiliates.DashboardStats(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, stats)
}
