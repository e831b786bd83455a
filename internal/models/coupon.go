package models

import (
	"time"

	"github.com/google/uuid"
)

// Coupon is a percentage discount code with optional usage and expiry
// limits. Codes are stored upper-cased; lookups normalize the same way.
type Coupon struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	Code               string     `json:"code" db:"code"`
	DiscountPercentage int        `json:"discount_percentage" db:"discount_percentage"`
	IsActive           bool       `json:"is_active" db:"is_active"`
	UsageCount         int        `json:"usage_count" db:"usage_count"`
	MaxUsage           *int       `json:"max_usage,omitempty" db:"max_usage"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedBy          uuid.UUID  `json:"created_by" db:"created_by"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
}
