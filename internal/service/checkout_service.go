package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v76"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"

	"github.com/tubira/affiliates-api/internal/config"
	"github.com/tubira/affiliates-api/internal/models"
	apierrors "github.com/tubira/affiliates-api/internal/pkg/errors"
	"github.com/tubira/affiliates-api/internal/repository"
)

// CheckoutService starts hosted checkout sessions for affiliate signups.
type CheckoutService interface {
	CreateSession(ctx context.Context, input CheckoutInput) (*CheckoutSessionInfo, error)
}

// CheckoutInput is the public checkout payload. The form fields travel in
// session metadata so the webhook reconciler can build the affiliate
// without a second round trip to the browser.
type CheckoutInput struct {
	Plan       string  `json:"plan" validate:"required"`
	Name       string  `json:"name" validate:"required,min=2"`
	Email      string  `json:"email" validate:"required,email"`
	Phone      string  `json:"phone" validate:"required"`
	Country    string  `json:"country" validate:"required"`
	Address    string  `json:"address" validate:"required"`
	Company    *string `json:"company,omitempty"`
	Website    *string `json:"website,omitempty" validate:"omitempty,url"`
	CouponCode string  `json:"coupon_code,omitempty"`
}

// CheckoutSessionInfo is returned to the browser for redirect.
type CheckoutSessionInfo struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type checkoutService struct {
	paymentRepo repository.PaymentRepository
	coupons     CouponService
	cfg         *config.Config
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	paymentRepo repository.PaymentRepository,
	coupons CouponService,
	cfg *config.Config,
) CheckoutService {
	stripe.Key = cfg.Stripe.SecretKey
	return &checkoutService{
		paymentRepo: paymentRepo,
		coupons:     coupons,
		cfg:         cfg,
	}
}

// CreateSession validates the plan and coupon, creates a one-time-payment
// checkout session, and records a pending payment keyed by the session ID.
func (s *checkoutService) CreateSession(ctx context.Context, input CheckoutInput) (*CheckoutSessionInfo, error) {
	plan, ok := models.PlanByID(models.PlanID(input.Plan))
	if !ok {
		return nil, apierrors.NewValidationError("plan", fmt.Sprintf("unknown plan %q", input.Plan))
	}

	finalAmount := plan.Price
	discountPct := 0
	if input.CouponCode != "" {
		validation, err := s.coupons.Validate(ctx, input.CouponCode)
		if err != nil {
			return nil, err
		}
		if !validation.Valid {
			return nil, apierrors.NewValidationError("coupon_code", validation.Reason)
		}
		discountPct = validation.DiscountPercentage
		finalAmount = ApplyDiscount(plan.Price, discountPct)
	}

	metadata := map[string]string{
		"name":                input.Name,
		"email":               input.Email,
		"phone":               input.Phone,
		"country":             input.Country,
		"address":             input.Address,
		"plan":                string(plan.ID),
		"original_price":      strconv.FormatInt(plan.Price, 10),
		"discount_percentage": strconv.Itoa(discountPct),
		"final_price":         strconv.FormatInt(finalAmount, 10),
	}
	if input.Company != nil {
		metadata["company"] = *input.Company
	}
	if input.Website != nil {
		metadata["website"] = *input.Website
	}
	if input.CouponCode != "" {
		metadata["coupon_code"] = input.CouponCode
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail: stripe.String(input.Email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String("usd"),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(plan.Name),
						Description: stripe.String("Tubira affiliate program membership"),
					},
					UnitAmount: stripe.Int64(finalAmount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.cfg.Server.BaseURL + "/payment/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(s.cfg.Server.BaseURL + "/payment/cancelled"),
		Metadata:   metadata,
	}
	params.Context = ctx

	sess, err := checkoutsession.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session creation failed: %w", err)
	}

	payment := &models.Payment{
		StripeCheckoutSessionID: &sess.ID,
		Amount:                  finalAmount,
		Currency:                "usd",
		Plan:                    plan.ID,
		Status:                  models.PaymentStatusPending,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to record pending payment: %w", err)
	}

	if input.CouponCode != "" {
		if err := s.coupons.IncrementUsage(ctx, input.CouponCode); err != nil {
			return nil, err
		}
	}

	return &CheckoutSessionInfo{SessionID: sess.ID, URL: sess.URL}, nil
}

// Compile-time check to ensure checkoutService implements CheckoutService.
var _ CheckoutService = (*checkoutService)(nil)
