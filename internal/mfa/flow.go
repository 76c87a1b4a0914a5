package mfa

import (
	"context"
	"sync"
)

// FlowState is the phase of one verification flow.
type FlowState string

const (
	FlowCollecting  FlowState = "collecting"
	FlowChallenging FlowState = "challenging"
	FlowVerifying   FlowState = "verifying"
	FlowVerified    FlowState = "verified"
	FlowRejected    FlowState = "rejected"
)

const codeLength = 6

// MaxAttempts caps how many rejected codes a single flow tolerates.
const MaxAttempts = 5

// Challenger issues and verifies challenges. The MFA service satisfies
// this; tests substitute a counter to pin down the one-challenge-one-verify
// contract per submission.
type Challenger interface {
	Challenge(ctx context.Context, userID int64, factorID, sessionID string) (*Challenge, error)
	Verify(ctx context.Context, userID int64, challengeID, sessionID, code string) error
}

// Flow drives one code entry session against a single factor. Each
// submission opens exactly one challenge and performs exactly one
// verification; a rejected code clears the buffer and returns to
// collecting so the user retries without a page reload.
type Flow struct {
	challenger Challenger
	userID     int64
	factorID   string
	sessionID  string

	mu       sync.Mutex
	state    FlowState
	code     string
	attempts int
}

// NewFlow starts a flow in the collecting state.
func NewFlow(challenger Challenger, userID int64, factorID, sessionID string) *Flow {
	return &Flow{
		challenger: challenger,
		userID:     userID,
		factorID:   factorID,
		sessionID:  sessionID,
		state:      FlowCollecting,
	}
}

// State returns the current phase.
func (f *Flow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Code returns the collected digits.
func (f *Flow) Code() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code
}

// Attempts returns how many submissions were rejected so far.
func (f *Flow) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

// Input appends digits to the code buffer, submitting automatically once
// six digits are collected. Non-digit characters are ignored.
func (f *Flow) Input(ctx context.Context, digits string) error {
	f.mu.Lock()
	if f.state != FlowCollecting {
		f.mu.Unlock()
		return ErrInvalidState
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			continue
		}
		if len(f.code) < codeLength {
			f.code += string(c)
		}
	}
	full := len(f.code) == codeLength
	f.mu.Unlock()

	if full {
		return f.Submit(ctx)
	}
	return nil
}

// Submit runs the challenge and verification for the collected code.
func (f *Flow) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.state != FlowCollecting {
		f.mu.Unlock()
		return ErrInvalidState
	}
	if len(f.code) != codeLength {
		f.mu.Unlock()
		return ErrInvalidCode
	}
	if f.attempts >= MaxAttempts {
		f.state = FlowRejected
		f.mu.Unlock()
		return ErrTooManyAttempts
	}
	code := f.code
	f.state = FlowChallenging
	f.mu.Unlock()

	challenge, err := f.challenger.Challenge(ctx, f.userID, f.factorID, f.sessionID)
	if err != nil {
		f.reject()
		return err
	}

	f.setState(FlowVerifying)
	if err := f.challenger.Verify(ctx, f.userID, challenge.ID, f.sessionID, code); err != nil {
		f.reject()
		return err
	}

	f.mu.Lock()
	f.state = FlowVerified
	f.mu.Unlock()
	return nil
}

// Cancel abandons the flow.
func (f *Flow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = FlowRejected
	f.code = ""
}

// reject clears the code and returns to collecting so the user can retry,
// unless the attempt cap was reached.
func (f *Flow) reject() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	f.code = ""
	if f.attempts >= MaxAttempts {
		f.state = FlowRejected
		return
	}
	f.state = FlowCollecting
}

func (f *Flow) setState(state FlowState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
}
