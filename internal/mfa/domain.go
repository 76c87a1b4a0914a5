// Package mfa implements TOTP second factors: enrollment, challenges and
// the client-side verification flow state machine.
package mfa

import (
	"errors"
	"time"
)

// Factor statuses as stored in postgres.
const (
	FactorStatusUnverified = "unverified"
	FactorStatusVerified   = "verified"
)

// Factor is an enrolled TOTP authenticator.
type Factor struct {
	ID           string    `json:"id"`
	UserID       int64     `json:"-"`
	FriendlyName string    `json:"friendly_name"`
	Status       string    `json:"status"`
	Secret       string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Challenge is a short-lived, single-use verification attempt against a
// factor. It lives in Redis and is consumed exactly once.
type Challenge struct {
	ID        string    `json:"id"`
	FactorID  string    `json:"factor_id"`
	UserID    int64     `json:"user_id"`
	SessionID string    `json:"session_id"`
	IssuedAt  time.Time `json:"issued_at"`
}

var (
	// ErrInvalidCode indicates the submitted TOTP code did not match.
	ErrInvalidCode = errors.New("mfa: invalid code")
	// ErrChallengeExpired indicates the challenge was consumed or timed out.
	ErrChallengeExpired = errors.New("mfa: challenge expired")
	// ErrInvalidState indicates a flow input that is illegal in the current
	// state.
	ErrInvalidState = errors.New("mfa: invalid state")
	// ErrTooManyAttempts indicates the verification attempt cap was hit.
	ErrTooManyAttempts = errors.New("mfa: too many attempts")
)
