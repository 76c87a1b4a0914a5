// Package admin exposes the bearer-token gated administration surface:
// user listing and password resets.
package admin

import (
	"time"

	"github.com/modulus-erp/modulus-erp/internal/access"
)

// UserSummary is the administration view of an account. No credential
// material crosses this boundary.
type UserSummary struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Actor is the authenticated administrator attached to the request context
// by the bearer middleware.
type Actor struct {
	UserID int64
	Email  string
	Role   access.Role
}
