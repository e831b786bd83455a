package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tubira/affiliates-api/internal/models"
	apierrors "github.com/tubira/affiliates-api/internal/pkg/errors"
	"github.com/tubira/affiliates-api/internal/pkg/response"
	"github.com/tubira/affiliates-api/internal/repository"
	"github.com/tubira/affiliates-api/internal/service"
)

// ActivityHandler handles the admin activity log surface.
type ActivityHandler struct {
	activities service.ActivityService
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(activities service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

// Routes returns the admin activity routes.
func (h *ActivityHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/export", h.Export)
	return r
}

func activityFilter(r *http.Request) (repository.ActivityFilter, error) {
	var filter repository.ActivityFilter

	if raw := r.URL.Query().Get("type"); raw != "" {
		filter.Type = models.ActivityType(raw)
	}
	if raw := r.URL.Query().Get("affiliate_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, apierrors.NewValidationError("affiliate_id", "invalid UUID format")
		}
		filter.AffiliateID = &id
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return filter, apierrors.NewValidationError("limit", "must be a positive integer")
		}
		filter.Limit = limit
	}
	return filter, nil
}

// List handles GET /api/admin/activities
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := activityFilter(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	activities, err := h.activities.List(r.Context(), filter)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, activities)
}

// Export handles GET /api/admin/activities/export
func (h *ActivityHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := activityFilter(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	header, rows, err := h.activities.ExportCSV(r.Context(), filter)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.CSV(w, "activities.csv", header, rows)
}
