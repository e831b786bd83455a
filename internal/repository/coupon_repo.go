package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tubira/affiliates-api/internal/models"
)

// CouponRepository defines the interface for coupon data operations.
type CouponRepository interface {
	Create(ctx context.Context, coupon *models.Coupon) error
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	List(ctx context.Context) ([]*models.Coupon, error)
	// IncrementUsage atomically bumps usage_count while the max-usage limit
	// holds. Returns false when the coupon is missing or exhausted.
	IncrementUsage(ctx context.Context, code string) (bool, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type couponRepo struct {
	pool *pgxpool.Pool
}

// NewCouponRepository creates a new coupon repository.
func NewCouponRepository(pool *pgxpool.Pool) CouponRepository {
	return &couponRepo{pool: pool}
}

const couponColumns = `id, code, discount_percentage, is_active, usage_count, max_usage,
	expires_at, created_by, created_at`

func scanCoupon(row pgx.Row) (*models.Coupon, error) {
	var c models.Coupon
	err := row.Scan(
		&c.ID,
		&c.Code,
		&c.DiscountPercentage,
		&c.IsActive,
		&c.UsageCount,
		&c.MaxUsage,
		&c.ExpiresAt,
		&c.CreatedBy,
		&c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a new coupon. The code is normalized to upper case.
func (r *couponRepo) Create(ctx context.Context, coupon *models.Coupon) error {
	query := `
		INSERT INTO coupons (id, code, discount_percentage, is_active, max_usage, expires_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING usage_count, created_at`

	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	coupon.Code = strings.ToUpper(coupon.Code)

	return r.pool.QueryRow(ctx, query,
		coupon.ID,
		coupon.Code,
		coupon.DiscountPercentage,
		coupon.IsActive,
		coupon.MaxUsage,
		coupon.ExpiresAt,
		coupon.CreatedBy,
	).Scan(&coupon.UsageCount, &coupon.CreatedAt)
}

// GetByCode retrieves a coupon by its upper-cased code.
func (r *couponRepo) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`
	return scanCoupon(r.pool.QueryRow(ctx, query, strings.ToUpper(code)))
}

// GetByID retrieves a coupon by its UUID.
func (r *couponRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`
	return scanCoupon(r.pool.QueryRow(ctx, query, id))
}

// List returns all coupons, newest first.
func (r *couponRepo) List(ctx context.Context) ([]*models.Coupon, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var coupons []*models.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, c)
	}
	return coupons, rows.Err()
}

// IncrementUsage atomically bumps usage_count while the limit holds.
// The conditional UPDATE closes the over-redemption race a read-modify-write
// sequence would have under concurrent double submits.
func (r *couponRepo) IncrementUsage(ctx context.Context, code string) (bool, error) {
	query := `
		UPDATE coupons SET usage_count = usage_count + 1
		WHERE code = $1 AND (max_usage IS NULL OR usage_count < max_usage)`

	tag, err := r.pool.Exec(ctx, query, strings.ToUpper(code))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetActive toggles a coupon's active flag.
func (r *couponRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE coupons SET is_active = $2 WHERE id = $1`, id, active)
	return err
}

// Delete removes a coupon.
func (r *couponRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	return err
}

// Compile-time check to ensure couponRepo implements CouponRepository.
var _ CouponRepository = (*couponRepo)(nil)
