package handler

import (
	"net/http"

	"github.com/tubira/affiliates-api/internal/models"
	"github.com/tubira/affiliates-api/internal/pkg/response"
)

// PlanHandler serves the static plan catalog.
type PlanHandler struct{}

// NewPlanHandler creates a new plan handler.
func NewPlanHandler() *PlanHandler {
	return &PlanHandler{}
}

// List handles GET /api/plans
func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	response.OK(w, models.AllPlans())
}
