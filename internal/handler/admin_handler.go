package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tubira/affiliates-api/internal/middleware"
	"github.com/tubira/affiliates-api/internal/models"
	apierrors "github.com/tubira/affiliates-api/internal/pkg/errors"
	"github.com/tubira/affiliates-api/internal/pkg/response"
	"github.com/tubira/affiliates-api/internal/service"
)

// AdminHandler handles back-office account management.
type AdminHandler struct {
	admins   service.AdminService
	validate *validator.Validate
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(admins service.AdminService) *AdminHandler {
	return &AdminHandler{
		admins:   admins,
		validate: validator.New(),
	}
}

// Routes returns the admin account routes.
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Patch("/{id}/role", h.UpdateRole)
	r.Delete("/{id}", h.Delete)
	return r
}

// List handles GET /api/admin/admins
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	admins, err := h.admins.List(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, admins)
}

// Create handles POST /api/admin/admins
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateAdminInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid admin payload"))
		return
	}

	creator := middleware.AdminFromContext(r.Context())
	admin, err := h.admins.Create(r.Context(), req, creator)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Created(w, admin)
}

type updateRoleRequest struct {
	Role models.AdminRole `json:"role"`
}

// UpdateRole handles PATCH /api/admin/admins/{id}/role
func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, apierrors.NewValidationError("id", "invalid UUID format"))
		return
	}

	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}

	admin, err := h.admins.UpdateRole(r.Context(), id, req.Role)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, admin)
}

// Delete handles DELETE /api/admin/admins/{id}
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, apierrors.NewValidationError("id", "invalid UUID format"))
		return
	}

	actor := middleware.AdminFromContext(r.Context())
	if err := h.admins.Delete(r.Context(), id, actor); err != nil {
		response.Error(w, err)
		return
	}
	response.NoContent(w)
}
