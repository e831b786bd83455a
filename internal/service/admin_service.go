package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tubira/affiliates-api/internal/config"
	"github.com/tubira/affiliates-api/internal/models"
	apierrors "github.com/tubira/affiliates-api/internal/pkg/errors"
	"github.com/tubira/affiliates-api/internal/repository"
)

// AdminService manages back-office accounts. Role enforcement happens in
// middleware; the service guards the invariants that survive any route
// misconfiguration, such as self-deletion.
type AdminService interface {
	List(ctx context.Context) ([]*models.Admin, error)
	Create(ctx context.Context, input CreateAdminInput, creator *models.Admin) (*models.Admin, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role models.AdminRole) (*models.Admin, error)
	Delete(ctx context.Context, id uuid.UUID, actor *models.Admin) error
}

// CreateAdminInput is the payload for super-admin account creation.
type CreateAdminInput struct {
	Email    string           `json:"email" validate:"required,email"`
	Name     string           `json:"name" validate:"required,min=2"`
	Password string           `json:"password" validate:"required,min=8"`
	Role     models.AdminRole `json:"role" validate:"required"`
}

type adminService struct {
	adminRepo   repository.AdminRepository
	sessionRepo repository.SessionRepository
	cfg         *config.AuthConfig
}

// NewAdminService creates a new admin service.
func NewAdminService(
	adminRepo repository.AdminRepository,
	sessionRepo repository.SessionRepository,
	cfg *config.AuthConfig,
) AdminService {
	return &adminService{
		adminRepo:   adminRepo,
		sessionRepo: sessionRepo,
		cfg:         cfg,
	}
}

func (s *adminService) List(ctx context.Context) ([]*models.Admin, error) {
	return s.adminRepo.List(ctx)
}

func (s *adminService) Create(ctx context.Context, input CreateAdminInput, creator *models.Admin) (*models.Admin, error) {
	if !models.ValidAdminRole(input.Role) {
		return nil, apierrors.NewValidationError("role", fmt.Sprintf("unknown role %q", input.Role))
	}

	existing, err := s.adminRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apierrors.NewConflictError("An admin with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	admin := &models.Admin{
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: string(hash),
		Role:         input.Role,
	}
	if creator != nil {
		admin.CreatedBy = &creator.ID
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

func (s *adminService) UpdateRole(ctx context.Context, id uuid.UUID, role models.AdminRole) (*models.Admin, error) {
	if !models.ValidAdminRole(role) {
		return nil, apierrors.NewValidationError("role", fmt.Sprintf("unknown role %q", role))
	}

	admin, err := s.adminRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, apierrors.NewNotFoundError("Admin")
	}

	if err := s.adminRepo.UpdateRole(ctx, id, role); err != nil {
		return nil, err
	}
	admin.Role = role
	return admin, nil
}

// Delete removes an admin account and its sessions. An admin cannot
// delete their own account.
func (s *adminService) Delete(ctx context.Context, id uuid.UUID, actor *models.Admin) error {
	if actor != nil && actor.ID == id {
		return apierrors.NewBusinessRuleError("You cannot delete your own account")
	}

	admin, err := s.adminRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if admin == nil {
		return apierrors.NewNotFoundError("Admin")
	}

	if err := s.sessionRepo.DeleteByAdmin(ctx, id); err != nil {
		return err
	}
	return s.adminRepo.Delete(ctx, id)
}

// Compile-time check to ensure adminService implements AdminService.
var _ AdminService = (*adminService)(nil)
