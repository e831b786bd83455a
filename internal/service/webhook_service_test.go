package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"github.com/tubira/affiliates-api/internal/config"
	"github.com/tubira/affiliates-api/internal/models"
	apierrors "github.com/tubira/affiliates-api/internal/pkg/errors"
	"github.com/tubira/affiliates-api/internal/repository"
)

const testWebhookSecret = "whsec_test_secret"

// signWebhookPayload produces a Stripe-Signature header value for payload.
func signWebhookPayload(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// mockAffiliateRepository is a mock implementation of AffiliateRepository for testing.
type mockAffiliateRepository struct {
	mu sync.Mutex

	createFunc               func(ctx context.Context, affiliate *models.Affiliate) error
	getByIDFunc              func(ctx context.Context, id uuid.UUID) (*models.Affiliate, error)
	getByCheckoutSessionFunc func(ctx context.Context, sessionID string) (*models.Affiliate, error)
	getByPaymentIntentFunc   func(ctx context.Context, intentID string) (*models.Affiliate, error)
	listFunc                 func(ctx context.Context, status *models.AffiliateStatus) ([]*models.Affiliate, error)
	updateStatusFunc         func(ctx context.Context, id uuid.UUID, status models.AffiliateStatus) error

	created        []*models.Affiliate
	statusUpdates  []models.AffiliateStatus
	stripeRefsSets int
}

func (m *mockAffiliateRepository) Create(ctx context.Context, affiliate *models.Affiliate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if affiliate.ID == uuid.Nil {
		affiliate.ID = uuid.New()
	}
	m.created = append(m.created, affiliate)
	if m.createFunc != nil {
		return m.createFunc(ctx, affiliate)
	}
	return nil
}

func (m *mockAffiliateRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Affiliate, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockAffiliateRepository) GetByEmail(ctx context.Context, email string) (*models.Affiliate, error) {
	return nil, nil
}

func (m *mockAffiliateRepository) GetByCheckoutSession(ctx context.Context, sessionID string) (*models.Affiliate, error) {
	if m.getByCheckoutSessionFunc != nil {
		return m.getByCheckoutSessionFunc(ctx, sessionID)
	}
	return nil, nil
}

func (m *mockAffiliateRepository) GetByPaymentIntent(ctx context.Context, intentID string) (*models.Affiliate, error) {
	if m.getByPaymentIntentFunc != nil {
		return m.getByPaymentIntentFunc(ctx, intentID)
	}
	return nil, nil
}

func (m *mockAffiliateRepository) List(ctx context.Context, status *models.AffiliateStatus) ([]*models.Affiliate, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, status)
	}
	return nil, nil
}

func (m *mockAffiliateRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.AffiliateStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusUpdates = append(m.statusUpdates, status)
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockAffiliateRepository) UpdateStripeRefs(ctx context.Context, id uuid.UUID, intentID, sessionID, customerID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stripeRefsSets++
	return nil
}

func (m *mockAffiliateRepository) CountByStatus(ctx context.Context) (map[models.AffiliateStatus]int64, error) {
	return nil, nil
}

// mockPaymentRepository is a mock implementation of PaymentRepository for testing.
type mockPaymentRepository struct {
	mu sync.Mutex

	getByCheckoutSessionFunc func(ctx context.Context, sessionID string) (*models.Payment, error)
	getByPaymentIntentFunc   func(ctx context.Context, intentID string) (*models.Payment, error)

	created       []*models.Payment
	statusUpdates []models.PaymentStatus
	reconciled    int
}

func (m *mockPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	m.created = append(m.created, payment)
	return nil
}

func (m *mockPaymentRepository) GetByCheckoutSession(ctx context.Context, sessionID string) (*models.Payment, error) {
	if m.getByCheckoutSessionFunc != nil {
		return m.getByCheckoutSessionFunc(ctx, sessionID)
	}
	return nil, nil
}

func (m *mockPaymentRepository) GetByPaymentIntent(ctx context.Context, intentID string) (*models.Payment, error) {
	if m.getByPaymentIntentFunc != nil {
		return m.getByPaymentIntentFunc(ctx, intentID)
	}
	return nil, nil
}

func (m *mockPaymentRepository) List(ctx context.Context) ([]*models.Payment, error) {
	return nil, nil
}

func (m *mockPaymentRepository) ListByAffiliate(ctx context.Context, affiliateID uuid.UUID) ([]*models.Payment, error) {
	return nil, nil
}

func (m *mockPaymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusUpdates = append(m.statusUpdates, status)
	return nil
}

func (m *mockPaymentRepository) Reconcile(ctx context.Context, id uuid.UUID, affiliateID uuid.UUID, status models.PaymentStatus, intentID, customerID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconciled++
	return nil
}

func (m *mockPaymentRepository) Stats(ctx context.Context) (*models.PaymentStats, error) {
	return &models.PaymentStats{}, nil
}

// mockActivityRepository is a mock implementation of ActivityRepository for testing.
type mockActivityRepository struct {
	mu      sync.Mutex
	entries []*models.Activity
}

func (m *mockActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, activity)
	return nil
}

func (m *mockActivityRepository) List(ctx context.Context, filter repository.ActivityFilter) ([]*models.Activity, error) {
	return nil, nil
}

// mockWebhookEventRepository is a mock implementation of WebhookEventRepository
// for testing. Without a claimFunc override it behaves like the real ledger:
// first claim per event ID wins, Release forgets the claim.
type mockWebhookEventRepository struct {
	mu        sync.Mutex
	claimFunc func(ctx context.Context, stripeEventID, eventType, objectID string) (bool, error)
	seen      map[string]bool
	claims    int
	releases  int
}

func (m *mockWebhookEventRepository) Claim(ctx context.Context, stripeEventID, eventType, objectID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims++
	if m.claimFunc != nil {
		return m.claimFunc(ctx, stripeEventID, eventType, objectID)
	}
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	if m.seen[stripeEventID] {
		return false, nil
	}
	m.seen[stripeEventID] = true
	return true, nil
}

func (m *mockWebhookEventRepository) Release(ctx context.Context, stripeEventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases++
	delete(m.seen, stripeEventID)
	return nil
}

// mockEmailService is a no-op email service for testing.
type mockEmailService struct{}

func (m *mockEmailService) Send(ctx context.Context, to, subject, html string) error { return nil }
func (m *mockEmailService) SendWelcome(ctx context.Context, to, name string, plan models.Plan) error {
	return nil
}
func (m *mockEmailService) SendAdminNotification(ctx context.Context, to, affiliateName, affiliateEmail string, plan models.Plan, amount int64) error {
	return nil
}
func (m *mockEmailService) SendPasswordReset(ctx context.Context, to, name, resetURL string) error {
	return nil
}

var _ EmailService = (*mockEmailService)(nil)

type webhookFixture struct {
	svc        WebhookService
	affiliates *mockAffiliateRepository
	payments   *mockPaymentRepository
	activities *mockActivityRepository
	events     *mockWebhookEventRepository
	admins     *mockAdminRepository
}

func newWebhookFixture() *webhookFixture {
	f := &webhookFixture{
		affiliates: &mockAffiliateRepository{},
		payments:   &mockPaymentRepository{},
		activities: &mockActivityRepository{},
		events:     &mockWebhookEventRepository{},
		admins:     &mockAdminRepository{},
	}
	f.svc = NewWebhookService(
		f.affiliates,
		f.payments,
		f.activities,
		f.admins,
		f.events,
		&mockEmailService{},
		&config.StripeConfig{WebhookSecret: testWebhookSecret},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return f
}

// webhookEvent wraps an object payload in a Stripe event envelope.
// ConstructEvent rejects events whose api_version differs from the
// version the stripe-go bindings are pinned to.
func webhookEvent(eventID, eventType, object string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"api_version": %q,
		"type": %q,
		"data": {"object": %s}
	}`, eventID, stripe.APIVersion, eventType, object))
}

func checkoutCompletedPayload(sessionID string) []byte {
	return webhookEvent("evt_test_1", "checkout.session.completed", fmt.Sprintf(`{
		"id": %q,
		"object": "checkout.session",
		"amount_total": 40000,
		"currency": "usd",
		"payment_intent": "pi_test_1",
		"customer": "cus_test_1",
		"metadata": {
			"name": "Jane Doe",
			"email": "jane@example.com",
			"phone": "+15551234567",
			"country": "US",
			"address": "1 Main St",
			"plan": "standard",
			"original_price": "50000",
			"discount_percentage": "20",
			"final_price": "40000"
		}
	}`, sessionID))
}

func TestHandleWebhook_BadSignature(t *testing.T) {
	f := newWebhookFixture()

	payload := checkoutCompletedPayload("cs_test_1")
	err := f.svc.HandleWebhook(context.Background(), payload, "t=1,v1=deadbeef")

	require.Error(t, err)
	apiErr := apierrors.AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)
	assert.Zero(t, f.events.claims, "no claim before signature passes")
	assert.Empty(t, f.affiliates.created)
}

func TestHandleWebhook_DuplicateEventIsNoOp(t *testing.T) {
	f := newWebhookFixture()
	f.events.claimFunc = func(ctx context.Context, stripeEventID, eventType, objectID string) (bool, error) {
		return false, nil
	}

	payload := checkoutCompletedPayload("cs_test_1")
	err := f.svc.HandleWebhook(context.Background(), payload, signWebhookPayload(payload, testWebhookSecret))

	require.NoError(t, err)
	assert.Empty(t, f.affiliates.created)
	assert.Empty(t, f.payments.created)
	assert.Zero(t, f.payments.reconciled)
}

func TestHandleWebhook_CheckoutCompleted_SynthesizesAffiliate(t *testing.T) {
	f := newWebhookFixture()
	pending := &models.Payment{
		ID:     uuid.New(),
		Amount: 40000,
		Status: models.PaymentStatusPending,
		Plan:   models.PlanStandard,
	}
	f.payments.getByCheckoutSessionFunc = func(ctx context.Context, sessionID string) (*models.Payment, error) {
		return pending, nil
	}

	payload := checkoutCompletedPayload("cs_test_1")
	err := f.svc.HandleWebhook(context.Background(), payload, signWebhookPayload(payload, testWebhookSecret))
	require.NoError(t, err)

	require.Len(t, f.affiliates.created, 1)
	created := f.affiliates.created[0]
	assert.Equal(t, "jane@example.com", created.Email)
	assert.Equal(t, "Jane Doe", created.Name)
	assert.Equal(t, models.PlanStandard, created.Plan)
	assert.Equal(t, int64(40000), created.PlanPrice)
	require.NotNil(t, created.Phone)
	assert.Equal(t, "+15551234567", *created.Phone)

	assert.Equal(t, 1, f.payments.reconciled)
	assert.Equal(t, 1, f.affiliates.stripeRefsSets)
	assert.Equal(t, []models.AffiliateStatus{models.AffiliateStatusPaid}, f.affiliates.statusUpdates)

	f.activities.mu.Lock()
	defer f.activities.mu.Unlock()
	require.Len(t, f.activities.entries, 2)
	assert.Equal(t, models.ActivitySignup, f.activities.entries[0].Type)
	assert.Equal(t, models.ActivityPayment, f.activities.entries[1].Type)
	require.NotNil(t, f.activities.entries[1].Amount)
	assert.Equal(t, int64(40000), *f.activities.entries[1].Amount)
}

func TestHandleWebhook_CheckoutCompleted_MissingMetadata(t *testing.T) {
	f := newWebhookFixture()

	payload := webhookEvent("evt_test_2", "checkout.session.completed", `{
		"id": "cs_test_2",
		"object": "checkout.session",
		"amount_total": 40000,
		"currency": "usd",
		"metadata": {}
	}`)
	err := f.svc.HandleWebhook(context.Background(), payload, signWebhookPayload(payload, testWebhookSecret))

	require.NoError(t, err, "acknowledged so Stripe stops retrying")
	assert.Empty(t, f.affiliates.created)
	assert.Zero(t, f.payments.reconciled)
}

func TestHandleWebhook_PaymentFailed(t *testing.T) {
	f := newWebhookFixture()
	pending := &models.Payment{ID: uuid.New(), Status: models.PaymentStatusPending}
	f.payments.getByPaymentIntentFunc = func(ctx context.Context, intentID string) (*models.Payment, error) {
		return pending, nil
	}

	payload := webhookEvent("evt_test_3", "payment_intent.payment_failed", `{
		"id": "pi_test_3",
		"object": "payment_intent",
		"amount": 50000
	}`)
	err := f.svc.HandleWebhook(context.Background(), payload, signWebhookPayload(payload, testWebhookSecret))

	require.NoError(t, err)
	assert.Equal(t, []models.PaymentStatus{models.PaymentStatusFailed}, f.payments.statusUpdates)
	assert.Empty(t, f.affiliates.statusUpdates)
}

func TestHandleWebhook_RefundWithoutPayment(t *testing.T) {
	f := newWebhookFixture()

	payload := webhookEvent("evt_test_4", "charge.refunded", `{
		"id": "ch_test_4",
		"object": "charge",
		"payment_intent": "pi_unknown",
		"amount_refunded": 50000
	}`)
	err := f.svc.HandleWebhook(context.Background(), payload, signWebhookPayload(payload, testWebhookSecret))

	require.NoError(t, err)
	assert.Empty(t, f.payments.statusUpdates)
	f.activities.mu.Lock()
	defer f.activities.mu.Unlock()
	assert.Empty(t, f.activities.entries)
}

func TestHandleWebhook_Refund_RecordsNegativeAmount(t *testing.T) {
	f := newWebhookFixture()
	affiliateID := uuid.New()
	f.payments.getByPaymentIntentFunc = func(ctx context.Context, intentID string) (*models.Payment, error) {
		return &models.Payment{ID: uuid.New(), AffiliateID: &affiliateID, Status: models.PaymentStatusSucceeded}, nil
	}
	f.affiliates.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*models.Affiliate, error) {
		return &models.Affiliate{ID: affiliateID, Name: "Jane Doe", Status: models.AffiliateStatusPaid}, nil
	}

	payload := webhookEvent("evt_test_5", "charge.refunded", `{
		"id": "ch_test_5",
		"object": "charge",
		"payment_intent": "pi_test_5",
		"amount_refunded": 40000
	}`)
	err := f.svc.HandleWebhook(context.Background(), payload, signWebhookPayload(payload, testWebhookSecret))

	require.NoError(t, err)
	assert.Equal(t, []models.PaymentStatus{models.PaymentStatusRefunded}, f.payments.statusUpdates)
	f.activities.mu.Lock()
	defer f.activities.mu.Unlock()
	require.Len(t, f.activities.entries, 1)
	assert.Equal(t, models.ActivityRefund, f.activities.entries[0].Type)
	require.NotNil(t, f.activities.entries[0].Amount)
	assert.Equal(t, int64(-40000), *f.activities.entries[0].Amount)
}

func TestHandleWebhook_FailedProcessingReleasesClaim(t *testing.T) {
	f := newWebhookFixture()
	f.affiliates.getByCheckoutSessionFunc = func(ctx context.Context, sessionID string) (*models.Affiliate, error) {
		return nil, fmt.Errorf("connection reset")
	}

	payload := checkoutCompletedPayload("cs_test_1")
	err := f.svc.HandleWebhook(context.Background(), payload, signWebhookPayload(payload, testWebhookSecret))

	require.Error(t, err)
	assert.Equal(t, 1, f.events.claims)
	assert.Equal(t, 1, f.events.releases, "failed event must not keep its claim")
	assert.Empty(t, f.affiliates.created)
}

func TestHandleWebhook_RedeliveryAfterFailureIsProcessed(t *testing.T) {
	f := newWebhookFixture()

	failing := true
	f.affiliates.getByCheckoutSessionFunc = func(ctx context.Context, sessionID string) (*models.Affiliate, error) {
		if failing {
			return nil, fmt.Errorf("connection reset")
		}
		return nil, nil
	}
	pending := &models.Payment{
		ID:     uuid.New(),
		Amount: 40000,
		Status: models.PaymentStatusPending,
		Plan:   models.PlanStandard,
	}
	f.payments.getByCheckoutSessionFunc = func(ctx context.Context, sessionID string) (*models.Payment, error) {
		return pending, nil
	}

	payload := checkoutCompletedPayload("cs_test_1")
	sig := signWebhookPayload(payload, testWebhookSecret)
	require.Error(t, f.svc.HandleWebhook(context.Background(), payload, sig))

	failing = false
	require.NoError(t, f.svc.HandleWebhook(context.Background(), payload, sig))

	require.Len(t, f.affiliates.created, 1)
	assert.Equal(t, 1, f.payments.reconciled, "redelivery reconciles the pending payment")
	assert.Equal(t, 2, f.events.claims)
	assert.Equal(t, 1, f.events.releases)
}

func TestHandleWebhook_UnknownEventType(t *testing.T) {
	f := newWebhookFixture()

	payload := webhookEvent("evt_test_6", "customer.created", `{"id": "cus_test_6", "object": "customer"}`)
	err := f.svc.HandleWebhook(context.Background(), payload, signWebhookPayload(payload, testWebhookSecret))

	require.NoError(t, err)
	assert.Equal(t, 1, f.events.claims)
}
