package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tubira/affiliates-api/internal/config"
	"github.com/tubira/affiliates-api/internal/models"
	apierrors "github.com/tubira/affiliates-api/internal/pkg/errors"
	"github.com/tubira/affiliates-api/internal/pkg/token"
	"github.com/tubira/affiliates-api/internal/repository"
)

// AuthService manages admin authentication: sessions, signup bootstrap,
// and password resets.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*models.Admin, *models.Session, error)
	Verify(ctx context.Context, sessionToken string) (*models.Admin, error)
	Logout(ctx context.Context, sessionToken string) error
	Signup(ctx context.Context, input SignupInput) (*models.Admin, *models.Session, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
}

// SignupInput is the first-admin bootstrap payload.
type SignupInput struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=2"`
	Password string `json:"password" validate:"required,min=8"`
}

type authService struct {
	adminRepo   repository.AdminRepository
	sessionRepo repository.SessionRepository
	email       EmailService
	cfg         *config.Config
	logger      *slog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(
	adminRepo repository.AdminRepository,
	sessionRepo repository.SessionRepository,
	email EmailService,
	cfg *config.Config,
	logger *slog.Logger,
) AuthService {
	return &authService{
		adminRepo:   adminRepo,
		sessionRepo: sessionRepo,
		email:       email,
		cfg:         cfg,
		logger:      logger,
	}
}

// Login verifies credentials and opens a new session. Unknown email and
// wrong password return the same error.
func (s *authService) Login(ctx context.Context, email, password string) (*models.Admin, *models.Session, error) {
	admin, err := s.adminRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if admin == nil {
		return nil, nil, apierrors.ErrUnauthorized.WithMessage("Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, nil, apierrors.ErrUnauthorized.WithMessage("Invalid email or password")
	}

	session, err := s.openSession(ctx, admin.ID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.adminRepo.TouchLastLogin(ctx, admin.ID); err != nil {
		s.logger.Warn("failed to update last login", "admin_id", admin.ID, "error", err)
	}
	return admin, session, nil
}

// Verify resolves a session token to its admin. Expired sessions are
// deleted on sight.
func (s *authService) Verify(ctx context.Context, sessionToken string) (*models.Admin, error) {
	session, err := s.sessionRepo.GetByToken(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apierrors.ErrUnauthorized
	}
	if time.Now().After(session.ExpiresAt) {
		_ = s.sessionRepo.DeleteByToken(ctx, sessionToken)
		return nil, apierrors.ErrUnauthorized.WithMessage("Session expired")
	}

	admin, err := s.adminRepo.GetByID(ctx, session.AdminID)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, apierrors.ErrUnauthorized
	}
	return admin, nil
}

func (s *authService) Logout(ctx context.Context, sessionToken string) error {
	return s.sessionRepo.DeleteByToken(ctx, sessionToken)
}

// Signup bootstraps the first super admin. Once any admin exists, account
// creation goes through the admin management surface instead.
func (s *authService) Signup(ctx context.Context, input SignupInput) (*models.Admin, *models.Session, error) {
	count, err := s.adminRepo.Count(ctx)
	if err != nil {
		return nil, nil, err
	}
	if count > 0 {
		return nil, nil, apierrors.ErrForbidden.WithMessage("Signup is disabled; ask a super admin to create your account")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cfg.Auth.BcryptCost)
	if err != nil {
		return nil, nil, err
	}

	admin := &models.Admin{
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: string(hash),
		Role:         models.RoleSuperAdmin,
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return nil, nil, err
	}

	session, err := s.openSession(ctx, admin.ID)
	if err != nil {
		return nil, nil, err
	}
	return admin, session, nil
}

// ForgotPassword issues a reset token. The response is identical whether
// or not the email exists, so the endpoint cannot be used to probe for
// accounts.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	admin, err := s.adminRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if admin == nil {
		return nil
	}

	reset := &models.PasswordResetToken{
		AdminID:   admin.ID,
		Token:     token.New(),
		ExpiresAt: time.Now().Add(s.cfg.Auth.ResetTokenExpiry),
	}
	if err := s.sessionRepo.CreateResetToken(ctx, reset); err != nil {
		return err
	}

	resetURL := s.cfg.Server.BaseURL + "/admin/reset-password?token=" + reset.Token
	go func() {
		if err := s.email.SendPasswordReset(context.Background(), admin.Email, admin.Name, resetURL); err != nil {
			s.logger.Error("failed to send password reset email", "to", admin.Email, "error", err)
		}
	}()
	return nil
}

// ResetPassword consumes a reset token, updates the hash, and revokes all
// existing sessions for the account.
func (s *authService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if len(newPassword) < 8 {
		return apierrors.NewValidationError("password", "must be at least 8 characters")
	}

	reset, err := s.sessionRepo.GetResetToken(ctx, resetToken)
	if err != nil {
		return err
	}
	if reset == nil || reset.Used || time.Now().After(reset.ExpiresAt) {
		return apierrors.ErrBadRequest.WithMessage("Invalid or expired reset token")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.adminRepo.UpdatePassword(ctx, reset.AdminID, string(hash)); err != nil {
		return err
	}
	if err := s.sessionRepo.MarkResetTokenUsed(ctx, reset.ID); err != nil {
		return err
	}
	return s.sessionRepo.DeleteByAdmin(ctx, reset.AdminID)
}

func (s *authService) openSession(ctx context.Context, adminID uuid.UUID) (*models.Session, error) {
	session := &models.Session{
		AdminID:   adminID,
		Token:     token.New(),
		ExpiresAt: time.Now().Add(s.cfg.Auth.SessionExpiry),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Compile-time check to ensure authService implements AuthService.
var _ AuthService = (*authService)(nil)
