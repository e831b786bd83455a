package models

import (
	"time"

	"github.com/google/uuid"
)

// AdminRole represents a back-office role.
type AdminRole string

const (
	RoleSuperAdmin     AdminRole = "super_admin"
	RoleFinancialAgent AdminRole = "financial_agent"
	RoleB2BAgent       AdminRole = "b2b_agent"
)

// ValidAdminRole reports whether r is a known role.
func ValidAdminRole(r AdminRole) bool {
	switch r {
	case RoleSuperAdmin, RoleFinancialAgent, RoleB2BAgent:
		return true
	}
	return false
}

// Admin is a back-office account. Legacy rows may have a NULL role; the
// repository defaults those to b2b_agent on read.
type Admin struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Name         string     `json:"name" db:"name"`
	Role         AdminRole  `json:"role" db:"role"`
	CreatedBy    *uuid.UUID `json:"created_by,omitempty" db:"created_by"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// Session is an opaque admin session token with a hard expiry.
type Session struct {
	ID        uuid.UUID `json:"id" db:"id"`
	AdminID   uuid.UUID `json:"admin_id" db:"admin_id"`
	Token     string    `json:"-" db:"token"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PasswordResetToken is a single-use reset token.
type PasswordResetToken struct {
	ID        uuid.UUID `json:"id" db:"id"`
	AdminID   uuid.UUID `json:"admin_id" db:"admin_id"`
	Token     string    `json:"-" db:"token"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	Used      bool      `json:"used" db:"used"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
