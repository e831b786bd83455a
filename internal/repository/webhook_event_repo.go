package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WebhookEventRepository records processed Stripe event IDs so redelivered
// webhooks are acknowledged without reprocessing.
type WebhookEventRepository interface {
	// Claim records the event ID and reports whether this call won the
	// claim. A false return means the event was already processed.
	Claim(ctx context.Context, stripeEventID, eventType, objectID string) (bool, error)

	// Release drops a claim whose processing failed, so the next Stripe
	// redelivery of the event is reprocessed instead of acknowledged.
	Release(ctx context.Context, stripeEventID string) error
}

type webhookEventRepo struct {
	pool *pgxpool.Pool
}

// NewWebhookEventRepository creates a new webhook event repository.
func NewWebhookEventRepository(pool *pgxpool.Pool) WebhookEventRepository {
	return &webhookEventRepo{pool: pool}
}

func (r *webhookEventRepo) Claim(ctx context.Context, stripeEventID, eventType, objectID string) (bool, error) {
	query := `
		INSERT INTO webhook_events (id, stripe_event_id, type, object_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (stripe_event_id) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query, uuid.New(), stripeEventID, eventType, objectID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *webhookEventRepo) Release(ctx context.Context, stripeEventID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM webhook_events WHERE stripe_event_id = $1`, stripeEventID)
	return err
}

// Compile-time check to ensure webhookEventRepo implements WebhookEventRepository.
var _ WebhookEventRepository = (*webhookEventRepo)(nil)
