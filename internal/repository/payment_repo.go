package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tubira/affiliates-api/internal/models"
)

// PaymentRepository defines the interface for payment data operations.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByCheckoutSession(ctx context.Context, sessionID string) (*models.Payment, error)
	GetByPaymentIntent(ctx context.Context, intentID string) (*models.Payment, error)
	List(ctx context.Context) ([]*models.Payment, error)
	ListByAffiliate(ctx context.Context, affiliateID uuid.UUID) ([]*models.Payment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) error
	Reconcile(ctx context.Context, id uuid.UUID, affiliateID uuid.UUID, status models.PaymentStatus, intentID, customerID *string) error
	Stats(ctx context.Context) (*models.PaymentStats, error)
}

type paymentRepo struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new payment repository.
func NewPaymentRepository(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, affiliate_id, stripe_payment_intent_id, stripe_checkout_session_id,
	stripe_customer_id, amount, currency, plan, status, created_at`

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(
		&p.ID,
		&p.AffiliateID,
		&p.StripePaymentIntentID,
		&p.StripeCheckoutSessionID,
		&p.StripeCustomerID,
		&p.Amount,
		&p.Currency,
		&p.Plan,
		&p.Status,
		&p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new payment row.
func (r *paymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (id, affiliate_id, stripe_payment_intent_id, stripe_checkout_session_id,
			stripe_customer_id, amount, currency, plan, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if payment.Status == "" {
		payment.Status = models.PaymentStatusPending
	}
	if payment.Currency == "" {
		payment.Currency = "usd"
	}

	return r.pool.QueryRow(ctx, query,
		payment.ID,
		payment.AffiliateID,
		payment.StripePaymentIntentID,
		payment.StripeCheckoutSessionID,
		payment.StripeCustomerID,
		payment.Amount,
		payment.Currency,
		payment.Plan,
		payment.Status,
	).Scan(&payment.CreatedAt)
}

// GetByCheckoutSession retrieves a payment by Stripe checkout session id.
func (r *paymentRepo) GetByCheckoutSession(ctx context.Context, sessionID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE stripe_checkout_session_id = $1`
	return scanPayment(r.pool.QueryRow(ctx, query, sessionID))
}

// GetByPaymentIntent retrieves a payment by Stripe payment intent id.
func (r *paymentRepo) GetByPaymentIntent(ctx context.Context, intentID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE stripe_payment_intent_id = $1 LIMIT 1`
	return scanPayment(r.pool.QueryRow(ctx, query, intentID))
}

// List returns all payments, newest first.
func (r *paymentRepo) List(ctx context.Context) ([]*models.Payment, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY created_at DESC`)
}

// ListByAffiliate returns an affiliate's payments, newest first.
func (r *paymentRepo) ListByAffiliate(ctx context.Context, affiliateID uuid.UUID) ([]*models.Payment, error) {
	return r.list(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE affiliate_id = $1 ORDER BY created_at DESC`,
		affiliateID)
}

func (r *paymentRepo) list(ctx context.Context, query string, args ...any) ([]*models.Payment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// UpdateStatus sets a payment's status.
func (r *paymentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) error {
	query := `UPDATE payments SET status = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, status)
	return err
}

// Reconcile links a payment to its affiliate, moves it to a terminal
// status, and fills in the Stripe references reported by the webhook.
func (r *paymentRepo) Reconcile(ctx context.Context, id uuid.UUID, affiliateID uuid.UUID, status models.PaymentStatus, intentID, customerID *string) error {
	query := `
		UPDATE payments SET
			affiliate_id = $2,
			status = $3,
			stripe_payment_intent_id = COALESCE($4, stripe_payment_intent_id),
			stripe_customer_id = COALESCE($5, stripe_customer_id)
		WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, affiliateID, status, intentID, customerID)
	return err
}

// Stats aggregates succeeded payments.
func (r *paymentRepo) Stats(ctx context.Context) (*models.PaymentStats, error) {
	query := `
		SELECT
			COALESCE(SUM(amount), 0),
			COUNT(*),
			COUNT(*) FILTER (WHERE plan = 'standard'),
			COUNT(*) FILTER (WHERE plan = 'premium'),
			COALESCE(SUM(amount) FILTER (WHERE plan = 'standard'), 0),
			COALESCE(SUM(amount) FILTER (WHERE plan = 'premium'), 0)
		FROM payments
		WHERE status = 'succeeded'`

	var s models.PaymentStats
	err := r.pool.QueryRow(ctx, query).Scan(
		&s.TotalRevenue,
		&s.TotalCount,
		&s.StandardCount,
		&s.PremiumCount,
		&s.StandardRevenue,
		&s.PremiumRevenue,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Compile-time check to ensure paymentRepo implements PaymentRepository.
var _ PaymentRepository = (*paymentRepo)(nil)
