package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tubira/affiliates-api/internal/models"
)

// ActivityRepository is the append-only audit log for affiliate events.
type ActivityRepository interface {
	Create(ctx context.Context, activity *models.Activity) error
	List(ctx context.Context, filter ActivityFilter) ([]*models.Activity, error)
}

// ActivityFilter narrows activity listings; zero values match everything.
type ActivityFilter struct {
	Type        models.ActivityType
	AffiliateID *uuid.UUID
	Limit       int
}

type activityRepo struct {
	pool *pgxpool.Pool
}

// NewActivityRepository creates a new activity repository.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepo{pool: pool}
}

const activityColumns = `id, affiliate_id, type, description, amount, created_at`

func scanActivity(row pgx.Row) (*models.Activity, error) {
	var a models.Activity
	err := row.Scan(
		&a.ID,
		&a.AffiliateID,
		&a.Type,
		&a.Description,
		&a.Amount,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *activityRepo) Create(ctx context.Context, activity *models.Activity) error {
	query := `
		INSERT INTO activities (id, affiliate_id, type, description, amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}

	return r.pool.QueryRow(ctx, query,
		activity.ID,
		activity.AffiliateID,
		activity.Type,
		activity.Description,
		activity.Amount,
	).Scan(&activity.CreatedAt)
}

func (r *activityRepo) List(ctx context.Context, filter ActivityFilter) ([]*models.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities`
	var (
		args  []any
		where []string
	)
	if filter.Type != "" {
		args = append(args, filter.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.AffiliateID != nil {
		args = append(args, *filter.AffiliateID)
		where = append(where, fmt.Sprintf("affiliate_id = $%d", len(args)))
	}
	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []*models.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// Compile-time check to ensure activityRepo implements ActivityRepository.
var _ ActivityRepository = (*activityRepo)(nil)
