package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEvent is the dedupe ledger for payment-provider deliveries.
// The reconciler claims an event by inserting its Stripe event ID with
// ON CONFLICT DO NOTHING; a replay fails to claim and is acknowledged
// without re-applying side effects.
type WebhookEvent struct {
	ID            uuid.UUID `json:"id" db:"id"`
	StripeEventID string    `json:"stripe_event_id" db:"stripe_event_id"`
	Type          string    `json:"type" db:"type"`
	ObjectID      string    `json:"object_id" db:"object_id"`
	ReceivedAt    time.Time `json:"received_at" db:"received_at"`
}
