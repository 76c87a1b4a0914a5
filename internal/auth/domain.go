// Package auth owns login, sessions and the coordinator that tracks the
// authoritative "who is signed in" state per session.
package auth

import "time"

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SessionState is the provider-side view of one live session.
type SessionState struct {
	ID     string
	UserID int64
	Email  string
	AAL    string
}

// Assurance carries the achieved and required authenticator assurance
// levels for a session.
type Assurance struct {
	CurrentLevel string
	NextLevel    string
}
