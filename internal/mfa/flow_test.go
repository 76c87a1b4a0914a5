package mfa_test

import (
	"context"
	"errors"
	"testing"

	"github.com/modulus-erp/modulus-erp/internal/mfa"
	_ "github.com/modulus-erp/modulus-erp/testing"
)

type countingChallenger struct {
	challenges int
	verifies   int
	verifyErr  error
	lastCode   string
}

func (c *countingChallenger) Challenge(ctx context.Context, userID int64, factorID, sessionID string) (*mfa.Challenge, error) {
	c.challenges++
	return &mfa.Challenge{ID: "ch-1", FactorID: factorID, UserID: userID, SessionID: sessionID}, nil
}

func (c *countingChallenger) Verify(ctx context.Context, userID int64, challengeID, sessionID, code string) error {
	c.verifies++
	c.lastCode = code
	return c.verifyErr
}

func TestFlowAutoSubmitsAtSixDigits(t *testing.T) {
	challenger := &countingChallenger{}
	flow := mfa.NewFlow(challenger, 7, "factor-1", "sess-1")

	if err := flow.Input(context.Background(), "123"); err != nil {
		t.Fatalf("partial input: %v", err)
	}
	if flow.State() != mfa.FlowCollecting {
		t.Fatalf("state = %s, want collecting", flow.State())
	}
	if challenger.challenges != 0 {
		t.Fatalf("no challenge before six digits")
	}

	if err := flow.Input(context.Background(), "456"); err != nil {
		t.Fatalf("completing input: %v", err)
	}
	if flow.State() != mfa.FlowVerified {
		t.Fatalf("state = %s, want verified", flow.State())
	}
	if challenger.challenges != 1 || challenger.verifies != 1 {
		t.Fatalf("expected exactly one challenge and one verify, got %d/%d",
			challenger.challenges, challenger.verifies)
	}
	if challenger.lastCode != "123456" {
		t.Fatalf("submitted code = %s", challenger.lastCode)
	}
}

func TestFlowIgnoresNonDigits(t *testing.T) {
	challenger := &countingChallenger{}
	flow := mfa.NewFlow(challenger, 7, "factor-1", "sess-1")

	if err := flow.Input(context.Background(), "12a-34 5x6"); err != nil {
		t.Fatalf("input: %v", err)
	}
	if challenger.lastCode != "123456" {
		t.Fatalf("submitted code = %s, want 123456", challenger.lastCode)
	}
}

func TestFlowRejectionReturnsToCollecting(t *testing.T) {
	challenger := &countingChallenger{verifyErr: mfa.ErrInvalidCode}
	flow := mfa.NewFlow(challenger, 7, "factor-1", "sess-1")

	err := flow.Input(context.Background(), "111111")
	if !errors.Is(err, mfa.ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
	if flow.State() != mfa.FlowCollecting {
		t.Fatalf("state = %s, want collecting after rejection", flow.State())
	}
	if flow.Code() != "" {
		t.Fatalf("rejected code must be cleared, got %q", flow.Code())
	}
	if flow.Attempts() != 1 {
		t.Fatalf("attempts = %d, want 1", flow.Attempts())
	}

	challenger.verifyErr = nil
	if err := flow.Input(context.Background(), "222222"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if flow.State() != mfa.FlowVerified {
		t.Fatalf("state = %s, want verified after retry", flow.State())
	}
	if challenger.challenges != 2 || challenger.verifies != 2 {
		t.Fatalf("each submission opens one challenge, got %d/%d",
			challenger.challenges, challenger.verifies)
	}
}

func TestFlowCapsAttempts(t *testing.T) {
	challenger := &countingChallenger{verifyErr: mfa.ErrInvalidCode}
	flow := mfa.NewFlow(challenger, 7, "factor-1", "sess-1")

	for i := 0; i < mfa.MaxAttempts; i++ {
		err := flow.Input(context.Background(), "111111")
		if !errors.Is(err, mfa.ErrInvalidCode) {
			t.Fatalf("attempt %d: expected ErrInvalidCode, got %v", i, err)
		}
	}
	if flow.State() != mfa.FlowRejected {
		t.Fatalf("state = %s, want rejected after %d attempts", flow.State(), mfa.MaxAttempts)
	}
	if err := flow.Input(context.Background(), "222222"); !errors.Is(err, mfa.ErrInvalidState) {
		t.Fatalf("rejected flow must not accept input, got %v", err)
	}
	if challenger.challenges != mfa.MaxAttempts {
		t.Fatalf("challenges = %d, want %d", challenger.challenges, mfa.MaxAttempts)
	}
}

func TestFlowSubmitRequiresFullCode(t *testing.T) {
	challenger := &countingChallenger{}
	flow := mfa.NewFlow(challenger, 7, "factor-1", "sess-1")

	if err := flow.Input(context.Background(), "123"); err != nil {
		t.Fatalf("input: %v", err)
	}
	if err := flow.Submit(context.Background()); !errors.Is(err, mfa.ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode for short code, got %v", err)
	}
	if challenger.challenges != 0 {
		t.Fatalf("no challenge for a short code")
	}
}

func TestFlowCancel(t *testing.T) {
	flow := mfa.NewFlow(&countingChallenger{}, 7, "factor-1", "sess-1")
	flow.Cancel()
	if flow.State() != mfa.FlowRejected {
		t.Fatalf("state = %s, want rejected", flow.State())
	}
	if err := flow.Input(context.Background(), "1"); !errors.Is(err, mfa.ErrInvalidState) {
		t.Fatalf("cancelled flow must reject input, got %v", err)
	}
}
