// Package handler provides HTTP handlers for the affiliate program API.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	apierrors "github.com/tubira/affiliates-api/internal/pkg/errors"
	"github.com/tubira/affiliates-api/internal/pkg/response"
	"github.com/tubira/affiliates-api/internal/service"
)

// CheckoutHandler handles public checkout requests.
type CheckoutHandler struct {
	checkout service.CheckoutService
	validate *validator.Validate
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(checkout service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		validate: validator.New(),
	}
}

// Create handles POST /api/create-checkout-session
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CheckoutInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			field := verrs[0].Field()
			response.Error(w, apierrors.NewValidationError(field, field+" is missing or invalid"))
			return
		}
		response.Error(w, apierrors.ErrBadRequest)
		return
	}

	info, err := h.checkout.CreateSession(r.Context(), req)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, info)
}
