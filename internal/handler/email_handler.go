package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/tubira/affiliates-api/internal/models"
	apierrors "github.com/tubira/affiliates-api/internal/pkg/errors"
	"github.com/tubira/affiliates-api/internal/pkg/response"
	"github.com/tubira/affiliates-api/internal/service"
)

// EmailHandler handles the public welcome-email endpoint used by the
// marketing site after a completed signup. The template is fixed; the
// request only selects the recipient and the catalog plan.
type EmailHandler struct {
	email    service.EmailService
	validate *validator.Validate
}

// NewEmailHandler creates a new email handler.
func NewEmailHandler(email service.EmailService) *EmailHandler {
	return &EmailHandler{
		email:    email,
		validate: validator.New(),
	}
}

type sendWelcomeEmailRequest struct {
	To        string `json:"to" validate:"required,email"`
	Name      string `json:"name" validate:"required,min=2"`
	Plan      string `json:"plan" validate:"required"`
	PlanPrice string `json:"planPrice" validate:"required"`
}

// Send handles POST /api/send-email
func (h *EmailHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendWelcomeEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Missing required fields"))
		return
	}

	// The catalog is authoritative for plan name and price; the posted
	// planPrice is required by the contract but never rendered.
	plan, ok := resolvePlan(req.Plan)
	if !ok {
		response.Error(w, apierrors.NewValidationError("plan", "unknown plan"))
		return
	}

	if err := h.email.SendWelcome(r.Context(), req.To, req.Name, plan); err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, map[string]bool{"sent": true})
}

// resolvePlan accepts either a catalog plan ID or a display name.
func resolvePlan(s string) (models.Plan, bool) {
	if plan, ok := models.PlanByID(models.PlanID(s)); ok {
		return plan, true
	}
	for _, plan := range models.AllPlans() {
		if plan.Name == s {
			return plan, true
		}
	}
	return models.Plan{}, false
}
