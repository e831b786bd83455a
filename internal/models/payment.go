package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the state of a checkout attempt.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Payment represents a single checkout attempt. One row is written before
// the browser is redirected to the hosted checkout page; the webhook
// reconciler moves it to a terminal status and links the affiliate.
type Payment struct {
	ID                      uuid.UUID     `json:"id" db:"id"`
	AffiliateID             *uuid.UUID    `json:"affiliate_id,omitempty" db:"affiliate_id"`
	StripePaymentIntentID   *string       `json:"stripe_payment_intent_id,omitempty" db:"stripe_payment_intent_id"`
	StripeCheckoutSessionID *string       `json:"stripe_checkout_session_id,omitempty" db:"stripe_checkout_session_id"`
	StripeCustomerID        *string       `json:"stripe_customer_id,omitempty" db:"stripe_customer_id"`
	Amount                  int64         `json:"amount" db:"amount"`
	Currency                string        `json:"currency" db:"currency"`
	Plan                    PlanID        `json:"plan" db:"plan"`
	Status                  PaymentStatus `json:"status" db:"status"`
	CreatedAt               time.Time     `json:"created_at" db:"created_at"`
}

// PaymentStats aggregates succeeded payments for the admin dashboard.
type PaymentStats struct {
	TotalRevenue    int64 `json:"total_revenue"`
	TotalCount      int64 `json:"total_count"`
	StandardCount   int64 `json:"standard_count"`
	PremiumCount    int64 `json:"premium_count"`
	StandardRevenue int64 `json:"standard_revenue"`
	PremiumRevenue  int64 `json:"premium_revenue"`
}
