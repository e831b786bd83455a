package models

import (
	"time"

	"github.com/google/uuid"
)

// AffiliateStatus represents an affiliate's lifecycle state.
type AffiliateStatus string

const (
	AffiliateStatusPending  AffiliateStatus = "pending"
	AffiliateStatusPaid     AffiliateStatus = "paid"
	AffiliateStatusActive   AffiliateStatus = "active"
	AffiliateStatusRejected AffiliateStatus = "rejected"
)

// ValidAffiliateStatus reports whether s is a known status.
func ValidAffiliateStatus(s AffiliateStatus) bool {
	switch s {
	case AffiliateStatusPending, AffiliateStatusPaid, AffiliateStatusActive, AffiliateStatusRejected:
		return true
	}
	return false
}

// Affiliate represents a registrant in the affiliate program.
// Never hard-deleted; status transitions are the only lifecycle.
type Affiliate struct {
	ID                      uuid.UUID       `json:"id" db:"id"`
	Email                   string          `json:"email" db:"email"`
	Name                    string          `json:"name" db:"name"`
	Phone                   *string         `json:"phone,omitempty" db:"phone"`
	Company                 *string         `json:"company,omitempty" db:"company"`
	Website                 *string         `json:"website,omitempty" db:"website"`
	Country                 *string         `json:"country,omitempty" db:"country"`
	Address                 *string         `json:"address,omitempty" db:"address"`
	Plan                    PlanID          `json:"plan" db:"plan"`
	PlanPrice               int64           `json:"plan_price" db:"plan_price"`
	Status                  AffiliateStatus `json:"status" db:"status"`
	StripePaymentIntentID   *string         `json:"stripe_payment_intent_id,omitempty" db:"stripe_payment_intent_id"`
	StripeCheckoutSessionID *string         `json:"stripe_checkout_session_id,omitempty" db:"stripe_checkout_session_id"`
	StripeCustomerID        *string         `json:"stripe_customer_id,omitempty" db:"stripe_customer_id"`
	CreatedAt               time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at" db:"updated_at"`
}
