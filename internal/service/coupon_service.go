package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tubira/affiliates-api/internal/models"
	apierrors "github.com/tubira/affiliates-api/internal/pkg/errors"
	"github.com/tubira/affiliates-api/internal/repository"
)

// CouponService validates discount codes at checkout and backs the admin
// coupon CRUD surface.
type CouponService interface {
	Validate(ctx context.Context, code string) (*CouponValidation, error)
	IncrementUsage(ctx context.Context, code string) error

	Create(ctx context.Context, input CreateCouponInput) (*models.Coupon, error)
	List(ctx context.Context) ([]*models.Coupon, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CouponValidation is the outcome of a validation check. Invalid codes
// carry a human-readable reason instead of an error.
type CouponValidation struct {
	Valid              bool   `json:"valid"`
	DiscountPercentage int    `json:"discount_percentage,omitempty"`
	Reason             string `json:"error,omitempty"`
}

// CreateCouponInput is the admin-facing coupon creation payload.
type CreateCouponInput struct {
	Code               string     `json:"code" validate:"required,min=3,max=32"`
	DiscountPercentage int        `json:"discount_percentage" validate:"min=0,max=100"`
	MaxUsage           *int       `json:"max_usage,omitempty" validate:"omitempty,min=1"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	CreatedBy          uuid.UUID  `json:"-"`
}

type couponService struct {
	couponRepo repository.CouponRepository
}

// NewCouponService creates a new coupon service.
func NewCouponService(couponRepo repository.CouponRepository) CouponService {
	return &couponService{couponRepo: couponRepo}
}

// Validate checks a code in a fixed order: existence, active flag, expiry,
// then usage limit. The first failing check decides the reason.
func (s *couponService) Validate(ctx context.Context, code string) (*CouponValidation, error) {
	if strings.TrimSpace(code) == "" {
		return &CouponValidation{Valid: false, Reason: "Coupon code is required"}, nil
	}

	coupon, err := s.couponRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return &CouponValidation{Valid: false, Reason: "Invalid coupon code"}, nil
	}
	if !coupon.IsActive {
		return &CouponValidation{Valid: false, Reason: "Coupon is not active"}, nil
	}
	if coupon.ExpiresAt != nil && time.Now().After(*coupon.ExpiresAt) {
		return &CouponValidation{Valid: false, Reason: "Coupon has expired"}, nil
	}
	if coupon.MaxUsage != nil && coupon.UsageCount >= *coupon.MaxUsage {
		return &CouponValidation{Valid: false, Reason: "Coupon usage limit reached"}, nil
	}

	return &CouponValidation{Valid: true, DiscountPercentage: coupon.DiscountPercentage}, nil
}

// IncrementUsage records one redemption. The repository enforces the
// max-usage limit atomically; losing the race surfaces as a business error.
func (s *couponService) IncrementUsage(ctx context.Context, code string) error {
	ok, err := s.couponRepo.IncrementUsage(ctx, code)
	if err != nil {
		return err
	}
	if !ok {
		return apierrors.NewBusinessRuleError("Coupon has reached its usage limit")
	}
	return nil
}

// ApplyDiscount returns the amount in cents after a percentage discount,
// rounded to the nearest cent.
func ApplyDiscount(amount int64, discountPercentage int) int64 {
	if discountPercentage <= 0 {
		return amount
	}
	if discountPercentage >= 100 {
		return 0
	}
	return int64(math.Round(float64(amount) * (1 - float64(discountPercentage)/100)))
}

func (s *couponService) Create(ctx context.Context, input CreateCouponInput) (*models.Coupon, error) {
	if input.DiscountPercentage < 0 || input.DiscountPercentage > 100 {
		return nil, apierrors.NewValidationError("discount_percentage", "must be between 0 and 100")
	}

	existing, err := s.couponRepo.GetByCode(ctx, input.Code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apierrors.NewConflictError("A coupon with this code already exists")
	}

	coupon := &models.Coupon{
		Code:               input.Code,
		DiscountPercentage: input.DiscountPercentage,
		IsActive:           true,
		MaxUsage:           input.MaxUsage,
		ExpiresAt:          input.ExpiresAt,
		CreatedBy:          input.CreatedBy,
	}
	if err := s.couponRepo.Create(ctx, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

func (s *couponService) List(ctx context.Context) ([]*models.Coupon, error) {
	return s.couponRepo.List(ctx)
}

func (s *couponService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	coupon, err := s.couponRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if coupon == nil {
		return apierrors.NewNotFoundError("Coupon")
	}
	return s.couponRepo.SetActive(ctx, id, active)
}

func (s *couponService) Delete(ctx context.Context, id uuid.UUID) error {
	coupon, err := s.couponRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if coupon == nil {
		return apierrors.NewNotFoundError("Coupon")
	}
	return s.couponRepo.Delete(ctx, id)
}

// Compile-time check to ensure couponService implements CouponService.
var _ CouponService = (*couponService)(nil)
