package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tubira/affiliates-api/internal/middleware"
	apierrors "github.com/tubira/affiliates-api/internal/pkg/errors"
	"github.com/tubira/affiliates-api/internal/pkg/response"
	"github.com/tubira/affiliates-api/internal/service"
)

// CouponHandler handles public coupon validation and the admin coupon
// CRUD surface.
type CouponHandler struct {
	coupons  service.CouponService
	validate *validator.Validate
}

// NewCouponHandler creates a new coupon handler.
func NewCouponHandler(coupons service.CouponService) *CouponHandler {
	return &CouponHandler{
		coupons:  coupons,
		validate: validator.New(),
	}
}

// AdminRoutes returns the admin coupon routes.
func (h *CouponHandler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	return r
}

type validateCouponRequest struct {
	Code string `json:"code"`
}

// Validate handles POST /api/validate-coupon
func (h *CouponHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}

	result, err := h.coupons.Validate(r.Context(), req.Code)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, result)
}

// List handles GET /api/admin/coupons
func (h *CouponHandler) List(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.List(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, coupons)
}

// Create handles POST /api/admin/coupons
func (h *CouponHandler) Create(w http.ResponseWriter, r *http.Request) {
	admin := middleware.AdminFromContext(r.Context())
	if admin == nil {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	var req service.CreateCouponInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid coupon payload"))
		return
	}

	req.CreatedBy = admin.ID
	coupon, err := h.coupons.Create(r.Context(), req)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Created(w, coupon)
}

type updateCouponRequest struct {
	IsActive *bool `json:"is_active"`
}

// Update handles PATCH /api/admin/coupons/{id}
func (h *CouponHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, apierrors.NewValidationError("id", "invalid UUID format"))
		return
	}

	var req updateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}
	if req.IsActive == nil {
		response.Error(w, apierrors.NewValidationError("is_active", "is_active is required"))
		return
	}

	if err := h.coupons.SetActive(r.Context(), id, *req.IsActive); err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, map[string]bool{"updated": true})
}

// Delete handles DELETE /api/admin/coupons/{id}
func (h *CouponHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, apierrors.NewValidationError("id", "invalid UUID format"))
		return
	}

	if err := h.coupons.Delete(r.Context(), id); err != nil {
		response.Error(w, err)
		return
	}

	response.NoContent(w)
}
