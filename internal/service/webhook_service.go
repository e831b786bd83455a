package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/tubira/affiliates-api/internal/config"
	"github.com/tubira/affiliates-api/internal/models"
	apierrors "github.com/tubira/affiliates-api/internal/pkg/errors"
	"github.com/tubira/affiliates-api/internal/repository"
)

// WebhookService reconciles Stripe events against local payment and
// affiliate state. Every mutation path is idempotent: replayed events are
// acknowledged without reprocessing.
type WebhookService interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type webhookService struct {
	affiliateRepo repository.AffiliateRepository
	paymentRepo   repository.PaymentRepository
	activityRepo  repository.ActivityRepository
	adminRepo     repository.AdminRepository
	eventRepo     repository.WebhookEventRepository
	email         EmailService
	cfg           *config.StripeConfig
	logger        *slog.Logger
}

// NewWebhookService creates a new webhook service.
func NewWebhookService(
	affiliateRepo repository.AffiliateRepository,
	paymentRepo repository.PaymentRepository,
	activityRepo repository.ActivityRepository,
	adminRepo repository.AdminRepository,
	eventRepo repository.WebhookEventRepository,
	email EmailService,
	cfg *config.StripeConfig,
	logger *slog.Logger,
) WebhookService {
	return &webhookService{
		affiliateRepo: affiliateRepo,
		paymentRepo:   paymentRepo,
		activityRepo:  activityRepo,
		adminRepo:     adminRepo,
		eventRepo:     eventRepo,
		email:         email,
		cfg:           cfg,
		logger:        logger,
	}
}

// HandleWebhook verifies the event signature, claims the event ID, and
// dispatches to the matching reconciler. A failed signature check returns
// before any state is touched. A claim only sticks when the reconciler
// succeeds; on failure it is released so Stripe's redelivery is
// reprocessed rather than acknowledged as a duplicate.
func (s *webhookService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.cfg.WebhookSecret)
	if err != nil {
		return apierrors.ErrBadRequest.WithMessage("Webhook signature verification failed")
	}

	objectID := eventObjectID(&event)
	claimed, err := s.eventRepo.Claim(ctx, event.ID, string(event.Type), objectID)
	if err != nil {
		return fmt.Errorf("failed to claim webhook event: %w", err)
	}
	if !claimed {
		s.logger.Info("duplicate webhook event ignored",
			"event_id", event.ID, "type", event.Type)
		return nil
	}

	if err := s.dispatch(ctx, &event); err != nil {
		if relErr := s.eventRepo.Release(ctx, event.ID); relErr != nil {
			s.logger.Error("failed to release webhook event claim",
				"event_id", event.ID, "error", relErr)
		}
		return err
	}
	return nil
}

func (s *webhookService) dispatch(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("failed to unmarshal checkout session: %w", err)
		}
		return s.handleCheckoutCompleted(ctx, &sess)

	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return fmt.Errorf("failed to unmarshal payment intent: %w", err)
		}
		return s.handlePaymentSucceeded(ctx, &pi)

	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return fmt.Errorf("failed to unmarshal payment intent: %w", err)
		}
		return s.handlePaymentFailed(ctx, &pi)

	case "charge.refunded":
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return fmt.Errorf("failed to unmarshal charge: %w", err)
		}
		return s.handleChargeRefunded(ctx, &ch)

	default:
		s.logger.Debug("unhandled webhook event type", "type", event.Type)
		return nil
	}
}

// handleCheckoutCompleted is the canonical payment confirmation path. The
// affiliate record is built from the session metadata written at checkout
// creation; a session whose metadata lacks email or name is acknowledged
// but logged, since there is nothing to reconcile against.
func (s *webhookService) handleCheckoutCompleted(ctx context.Context, sess *stripe.CheckoutSession) error {
	meta := sess.Metadata
	email, name := meta["email"], meta["name"]

	affiliate, err := s.affiliateRepo.GetByCheckoutSession(ctx, sess.ID)
	if err != nil {
		return err
	}

	var signedUp bool
	if affiliate == nil {
		if email == "" || name == "" {
			s.logger.Warn("checkout session completed without affiliate metadata",
				"session_id", sess.ID)
			return nil
		}
		affiliate = s.affiliateFromMetadata(sess, meta)
		if err := s.affiliateRepo.Create(ctx, affiliate); err != nil {
			return fmt.Errorf("failed to create affiliate: %w", err)
		}
		signedUp = true
	}

	var intentID, customerID *string
	if sess.PaymentIntent != nil {
		intentID = &sess.PaymentIntent.ID
	}
	if sess.Customer != nil {
		customerID = &sess.Customer.ID
	}

	payment, err := s.paymentRepo.GetByCheckoutSession(ctx, sess.ID)
	if err != nil {
		return err
	}
	if payment == nil {
		payment = &models.Payment{
			AffiliateID:             &affiliate.ID,
			StripePaymentIntentID:   intentID,
			StripeCheckoutSessionID: &sess.ID,
			StripeCustomerID:        customerID,
			Amount:                  sess.AmountTotal,
			Currency:                string(sess.Currency),
			Plan:                    affiliate.Plan,
			Status:                  models.PaymentStatusSucceeded,
		}
		if err := s.paymentRepo.Create(ctx, payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
	} else {
		if err := s.paymentRepo.Reconcile(ctx, payment.ID, affiliate.ID,
			models.PaymentStatusSucceeded, intentID, customerID); err != nil {
			return fmt.Errorf("failed to reconcile payment: %w", err)
		}
	}

	sessionID := sess.ID
	if err := s.affiliateRepo.UpdateStripeRefs(ctx, affiliate.ID, intentID, &sessionID, customerID); err != nil {
		return err
	}
	if affiliate.Status == models.AffiliateStatusPending {
		if err := s.affiliateRepo.UpdateStatus(ctx, affiliate.ID, models.AffiliateStatusPaid); err != nil {
			return err
		}
	}

	if signedUp {
		s.recordActivity(ctx, affiliate, models.ActivitySignup,
			fmt.Sprintf("%s signed up for the %s plan", affiliate.Name, affiliate.Plan), nil)
	}
	amount := sess.AmountTotal
	s.recordActivity(ctx, affiliate, models.ActivityPayment,
		fmt.Sprintf("Payment of $%.2f received from %s", float64(amount)/100, affiliate.Name), &amount)

	s.notify(affiliate, amount)
	return nil
}

// handlePaymentSucceeded covers the legacy direct payment-intent flow.
func (s *webhookService) handlePaymentSucceeded(ctx context.Context, pi *stripe.PaymentIntent) error {
	payment, err := s.paymentRepo.GetByPaymentIntent(ctx, pi.ID)
	if err != nil {
		return err
	}
	if payment != nil && payment.Status == models.PaymentStatusSucceeded {
		return nil // already reconciled via checkout.session.completed
	}

	affiliate, err := s.affiliateRepo.GetByPaymentIntent(ctx, pi.ID)
	if err != nil {
		return err
	}
	if affiliate == nil && payment == nil {
		s.logger.Warn("payment intent succeeded for unknown payment", "intent_id", pi.ID)
		return nil
	}

	if payment != nil {
		if err := s.paymentRepo.UpdateStatus(ctx, payment.ID, models.PaymentStatusSucceeded); err != nil {
			return err
		}
		if affiliate == nil && payment.AffiliateID != nil {
			affiliate, err = s.affiliateRepo.GetByID(ctx, *payment.AffiliateID)
			if err != nil {
				return err
			}
		}
	}
	if affiliate == nil {
		return nil
	}

	if affiliate.Status == models.AffiliateStatusPending {
		if err := s.affiliateRepo.UpdateStatus(ctx, affiliate.ID, models.AffiliateStatusPaid); err != nil {
			return err
		}
	}

	amount := pi.Amount
	s.recordActivity(ctx, affiliate, models.ActivityPayment,
		fmt.Sprintf("Payment of $%.2f received from %s", float64(amount)/100, affiliate.Name), &amount)
	s.notify(affiliate, amount)
	return nil
}

func (s *webhookService) handlePaymentFailed(ctx context.Context, pi *stripe.PaymentIntent) error {
	payment, err := s.paymentRepo.GetByPaymentIntent(ctx, pi.ID)
	if err != nil {
		return err
	}
	if payment == nil {
		return nil
	}
	return s.paymentRepo.UpdateStatus(ctx, payment.ID, models.PaymentStatusFailed)
}

func (s *webhookService) handleChargeRefunded(ctx context.Context, ch *stripe.Charge) error {
	if ch.PaymentIntent == nil {
		return nil
	}
	payment, err := s.paymentRepo.GetByPaymentIntent(ctx, ch.PaymentIntent.ID)
	if err != nil {
		return err
	}
	if payment == nil {
		return nil
	}
	if err := s.paymentRepo.UpdateStatus(ctx, payment.ID, models.PaymentStatusRefunded); err != nil {
		return err
	}

	if payment.AffiliateID == nil {
		return nil
	}
	affiliate, err := s.affiliateRepo.GetByID(ctx, *payment.AffiliateID)
	if err != nil || affiliate == nil {
		return err
	}

	refunded := -ch.AmountRefunded
	s.recordActivity(ctx, affiliate, models.ActivityRefund,
		fmt.Sprintf("Refund of $%.2f issued to %s", float64(ch.AmountRefunded)/100, affiliate.Name), &refunded)
	return nil
}

func (s *webhookService) affiliateFromMetadata(sess *stripe.CheckoutSession, meta map[string]string) *models.Affiliate {
	planID := models.PlanID(meta["plan"])
	if !models.ValidPlanID(planID) {
		planID = models.PlanStandard
	}
	planPrice := sess.AmountTotal
	if v, err := strconv.ParseInt(meta["final_price"], 10, 64); err == nil {
		planPrice = v
	}

	a := &models.Affiliate{
		Email:     meta["email"],
		Name:      meta["name"],
		Plan:      planID,
		PlanPrice: planPrice,
		Status:    models.AffiliateStatusPending,
	}
	for key, dst := range map[string]**string{
		"phone":   &a.Phone,
		"company": &a.Company,
		"website": &a.Website,
		"country": &a.Country,
		"address": &a.Address,
	} {
		if v, ok := meta[key]; ok && v != "" {
			v := v
			*dst = &v
		}
	}
	return a
}

// recordActivity appends an audit entry. Audit failures are logged but do
// not fail the reconciliation.
func (s *webhookService) recordActivity(ctx context.Context, affiliate *models.Affiliate, typ models.ActivityType, description string, amount *int64) {
	activity := &models.Activity{
		AffiliateID: affiliate.ID,
		Type:        typ,
		Description: description,
		Amount:      amount,
	}
	if err := s.activityRepo.Create(ctx, activity); err != nil {
		s.logger.Error("failed to record activity",
			"type", typ, "affiliate_id", affiliate.ID, "error", err)
	}
}

// notify sends the welcome email and fans out admin notifications in the
// background. Stripe retries on non-2xx, so email outcomes must never
// decide the webhook response.
func (s *webhookService) notify(affiliate *models.Affiliate, amount int64) {
	plan, _ := models.PlanByID(affiliate.Plan)
	a := *affiliate

	go func() {
		ctx := context.Background()

		if err := s.email.SendWelcome(ctx, a.Email, a.Name, plan); err != nil {
			s.logger.Error("failed to send welcome email", "to", a.Email, "error", err)
		}

		admins, err := s.adminRepo.List(ctx)
		if err != nil {
			s.logger.Error("failed to list notification recipients", "error", err)
			return
		}
		for _, admin := range admins {
			if admin.Role != models.RoleSuperAdmin && admin.Role != models.RoleFinancialAgent {
				continue
			}
			if err := s.email.SendAdminNotification(ctx, admin.Email, a.Name, a.Email, plan, amount); err != nil {
				s.logger.Error("failed to send admin notification", "to", admin.Email, "error", err)
			}
		}
	}()
}

func eventObjectID(event *stripe.Event) string {
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
		return ""
	}
	return obj.ID
}

// Compile-time check to ensure webhookService implements WebhookService.
var _ WebhookService = (*webhookService)(nil)
