// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tubira/affiliates-api/internal/models"
)

// AffiliateRepository defines the interface for affiliate data operations.
type AffiliateRepository interface {
	Create(ctx context.Context, affiliate *models.Affiliate) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Affiliate, error)
	GetByEmail(ctx context.Context, email string) (*models.Affiliate, error)
	GetByCheckoutSession(ctx context.Context, sessionID string) (*models.Affiliate, error)
	GetByPaymentIntent(ctx context.Context, intentID string) (*models.Affiliate, error)
	List(ctx context.Context, status *models.AffiliateStatus) ([]*models.Affiliate, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.AffiliateStatus) error
	UpdateStripeRefs(ctx context.Context, id uuid.UUID, intentID, sessionID, customerID *string) error
	CountByStatus(ctx context.Context) (map[models.AffiliateStatus]int64, error)
}

type affiliateRepo struct {
	pool *pgxpool.Pool
}

// NewAffiliateRepository creates a new affiliate repository.
func NewAffiliateRepository(pool *pgxpool.Pool) AffiliateRepository {
	return &affiliateRepo{pool: pool}
}

const affiliateColumns = `id, email, name, phone, company, website, country, address,
	plan, plan_price, status, stripe_payment_intent_id, stripe_checkout_session_id,
	stripe_customer_id, created_at, updated_at`

func scanAffiliate(row pgx.Row) (*models.Affiliate, error) {
	var a models.Affiliate
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.Name,
		&a.Phone,
		&a.Company,
		&a.Website,
		&a.Country,
		&a.Address,
		&a.Plan,
		&a.PlanPrice,
		&a.Status,
		&a.StripePaymentIntentID,
		&a.StripeCheckoutSessionID,
		&a.StripeCustomerID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new affiliate.
func (r *affiliateRepo) Create(ctx context.Context, affiliate *models.Affiliate) error {
	query := `
		INSERT INTO affiliates (id, email, name, phone, company, website, country, address,
			plan, plan_price, status, stripe_payment_intent_id, stripe_checkout_session_id, stripe_customer_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at`

	if affiliate.ID == uuid.Nil {
		affiliate.ID = uuid.New()
	}
	if affiliate.Status == "" {
		affiliate.Status = models.AffiliateStatusPending
	}

	return r.pool.QueryRow(ctx, query,
		affiliate.ID,
		affiliate.Email,
		affiliate.Name,
		affiliate.Phone,
		affiliate.Company,
		affiliate.Website,
		affiliate.Country,
		affiliate.Address,
		affiliate.Plan,
		affiliate.PlanPrice,
		affiliate.Status,
		affiliate.StripePaymentIntentID,
		affiliate.StripeCheckoutSessionID,
		affiliate.StripeCustomerID,
	).Scan(&affiliate.CreatedAt, &affiliate.UpdatedAt)
}

// GetByID retrieves an affiliate by its UUID.
func (r *affiliateRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Affiliate, error) {
	query := `SELECT ` + affiliateColumns + ` FROM affiliates WHERE id = $1`
	return scanAffiliate(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail retrieves the most recent affiliate with the given email.
func (r *affiliateRepo) GetByEmail(ctx context.Context, email string) (*models.Affiliate, error) {
	query := `SELECT ` + affiliateColumns + ` FROM affiliates WHERE email = $1 ORDER BY created_at DESC LIMIT 1`
	return scanAffiliate(r.pool.QueryRow(ctx, query, email))
}

// GetByCheckoutSession retrieves an affiliate by Stripe checkout session id.
func (r *affiliateRepo) GetByCheckoutSession(ctx context.Context, sessionID string) (*models.Affiliate, error) {
	query := `SELECT ` + affiliateColumns + ` FROM affiliates WHERE stripe_checkout_session_id = $1`
	return scanAffiliate(r.pool.QueryRow(ctx, query, sessionID))
}

// GetByPaymentIntent retrieves an affiliate by Stripe payment intent id.
func (r *affiliateRepo) GetByPaymentIntent(ctx context.Context, intentID string) (*models.Affiliate, error) {
	query := `SELECT ` + affiliateColumns + ` FROM affiliates WHERE stripe_payment_intent_id = $1 LIMIT 1`
	return scanAffiliate(r.pool.QueryRow(ctx, query, intentID))
}

// List returns affiliates, newest first, optionally filtered by status.
func (r *affiliateRepo) List(ctx context.Context, status *models.AffiliateStatus) ([]*models.Affiliate, error) {
	query := `SELECT ` + affiliateColumns + ` FROM affiliates`
	args := []any{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var affiliates []*models.Affiliate
	for rows.Next() {
		a, err := scanAffiliate(rows)
		if err != nil {
			return nil, err
		}
		affiliates = append(affiliates, a)
	}
	return affiliates, rows.Err()
}

// UpdateStatus sets an affiliate's status.
func (r *affiliateRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.AffiliateStatus) error {
	query := `UPDATE affiliates SET status = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, status)
	return err
}

// UpdateStripeRefs patches the Stripe references that are non-nil.
func (r *affiliateRepo) UpdateStripeRefs(ctx context.Context, id uuid.UUID, intentID, sessionID, customerID *string) error {
	query := `
		UPDATE affiliates SET
			stripe_payment_intent_id = COALESCE($2, stripe_payment_intent_id),
			stripe_checkout_session_id = COALESCE($3, stripe_checkout_session_id),
			stripe_customer_id = COALESCE($4, stripe_customer_id),
			updated_at = NOW()
		WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, intentID, sessionID, customerID)
	return err
}

// CountByStatus returns affiliate counts grouped by status.
func (r *affiliateRepo) CountByStatus(ctx context.Context) (map[models.AffiliateStatus]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM affiliates GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.AffiliateStatus]int64)
	for rows.Next() {
		var status models.AffiliateStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// Compile-time check to ensure affiliateRepo implements AffiliateRepository.
var _ AffiliateRepository = (*affiliateRepo)(nil)
