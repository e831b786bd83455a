package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityType categorizes an audit-log entry.
type ActivityType string

const (
	ActivitySignup       ActivityType = "signup"
	ActivityPayment      ActivityType = "payment"
	ActivityStatusChange ActivityType = "status_change"
	ActivityRefund       ActivityType = "refund"
)

// Activity is an append-only audit entry describing a state change on an
// affiliate. Amount is signed; refunds record the refunded cents negated.
type Activity struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	AffiliateID uuid.UUID    `json:"affiliate_id" db:"affiliate_id"`
	Type        ActivityType `json:"type" db:"type"`
	Description string       `json:"description" db:"description"`
	Amount      *int64       `json:"amount,omitempty" db:"amount"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
}
