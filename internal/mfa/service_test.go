package mfa_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/modulus-erp/modulus-erp/internal/mfa"
	"github.com/modulus-erp/modulus-erp/internal/shared"
	_ "github.com/modulus-erp/modulus-erp/testing"
)

type fakeFactorRepo struct {
	factors  map[string]*mfa.Factor
	verified map[string]bool
}

func newFakeFactorRepo() *fakeFactorRepo {
	return &fakeFactorRepo{factors: make(map[string]*mfa.Factor), verified: make(map[string]bool)}
}

func (r *fakeFactorRepo) ListFactors(ctx context.Context, userID int64) ([]mfa.Factor, error) {
	var out []mfa.Factor
	for _, f := range r.factors {
		if f.UserID == userID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r *fakeFactorRepo) FindFactor(ctx context.Context, id string) (*mfa.Factor, error) {
	f, ok := r.factors[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *f
	return &copied, nil
}

func (r *fakeFactorRepo) HasVerifiedFactor(ctx context.Context, userID int64) (bool, error) {
	for _, f := range r.factors {
		if f.UserID == userID && f.Status == mfa.FactorStatusVerified {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeFactorRepo) CreateFactor(ctx context.Context, factor *mfa.Factor) error {
	copied := *factor
	r.factors[factor.ID] = &copied
	return nil
}

func (r *fakeFactorRepo) MarkFactorVerified(ctx context.Context, id string) error {
	f, ok := r.factors[id]
	if !ok {
		return shared.ErrNotFound
	}
	f.Status = mfa.FactorStatusVerified
	r.verified[id] = true
	return nil
}

func (r *fakeFactorRepo) DeleteFactor(ctx context.Context, id string, userID int64) error {
	f, ok := r.factors[id]
	if !ok || f.UserID != userID {
		return shared.ErrNotFound
	}
	delete(r.factors, id)
	return nil
}

type recordingNotifier struct {
	sessions []string
}

func (n *recordingNotifier) AssuranceChanged(sessionID string) {
	n.sessions = append(n.sessions, sessionID)
}

func newServiceFixture(t *testing.T) (*mfa.Service, *fakeFactorRepo, *shared.SessionManager, *recordingNotifier) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	repo := newFakeFactorRepo()
	notifier := &recordingNotifier{}
	service := mfa.NewService(repo, mfa.NewChallengeStore(client, time.Minute), sessions, nil).
		WithNotifier(notifier)
	return service, repo, sessions, notifier
}

func liveSession(t *testing.T, sessions *shared.SessionManager, userID string) *shared.Session {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sessions.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.SetUser(userID)
	sess.SetAAL(shared.AAL1)
	if err := sessions.Save(context.Background(), sess); err != nil {
		t.Fatalf("save session: %v", err)
	}
	return sess
}

func TestVerifyRaisesAssurance(t *testing.T) {
	service, repo, sessions, notifier := newServiceFixture(t)
	ctx := context.Background()
	sess := liveSession(t, sessions, "7")

	factor, err := service.Enroll(ctx, 7, "authenticator")
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if factor.Status != mfa.FactorStatusUnverified {
		t.Fatalf("fresh factor status = %s", factor.Status)
	}

	challenge, err := service.Challenge(ctx, 7, factor.ID, sess.ID)
	if err != nil {
		t.Fatalf("challenge: %v", err)
	}

	code, err := mfa.TOTPCode(factor.Secret, time.Now())
	if err != nil {
		t.Fatalf("code: %v", err)
	}
	if err := service.Verify(ctx, 7, challenge.ID, sess.ID, code); err != nil {
		t.Fatalf("verify: %v", err)
	}

	if !repo.verified[factor.ID] {
		t.Fatalf("factor must be promoted to verified")
	}
	stored, err := sessions.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if stored.AAL() != shared.AAL2 {
		t.Fatalf("session AAL = %s, want aal2", stored.AAL())
	}
	if len(notifier.sessions) != 1 || notifier.sessions[0] != sess.ID {
		t.Fatalf("notifier sessions = %v", notifier.sessions)
	}
}

func TestVerifyConsumesChallengeOnce(t *testing.T) {
	service, _, sessions, _ := newServiceFixture(t)
	ctx := context.Background()
	sess := liveSession(t, sessions, "7")

	factor, err := service.Enroll(ctx, 7, "authenticator")
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	challenge, err := service.Challenge(ctx, 7, factor.ID, sess.ID)
	if err != nil {
		t.Fatalf("challenge: %v", err)
	}
	code, err := mfa.TOTPCode(factor.Secret, time.Now())
	if err != nil {
		t.Fatalf("code: %v", err)
	}

	if err := service.Verify(ctx, 7, challenge.ID, sess.ID, code); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	err = service.Verify(ctx, 7, challenge.ID, sess.ID, code)
	if !errors.Is(err, mfa.ErrChallengeExpired) {
		t.Fatalf("second verify must fail with ErrChallengeExpired, got %v", err)
	}
}

func TestVerifyInvalidCodeConsumesChallenge(t *testing.T) {
	service, _, sessions, notifier := newServiceFixture(t)
	ctx := context.Background()
	sess := liveSession(t, sessions, "7")

	factor, err := service.Enroll(ctx, 7, "authenticator")
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	challenge, err := service.Challenge(ctx, 7, factor.ID, sess.ID)
	if err != nil {
		t.Fatalf("challenge: %v", err)
	}

	err = service.Verify(ctx, 7, challenge.ID, sess.ID, "000000")
	if !errors.Is(err, mfa.ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
	err = service.Verify(ctx, 7, challenge.ID, sess.ID, "000000")
	if !errors.Is(err, mfa.ErrChallengeExpired) {
		t.Fatalf("challenge must be gone after a failed attempt, got %v", err)
	}

	stored, err := sessions.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if stored.AAL() != shared.AAL1 {
		t.Fatalf("failed verification must not raise assurance")
	}
	if len(notifier.sessions) != 0 {
		t.Fatalf("failed verification must not notify, got %v", notifier.sessions)
	}
}

func TestChallengeRejectsForeignFactor(t *testing.T) {
	service, _, sessions, _ := newServiceFixture(t)
	ctx := context.Background()
	sess := liveSession(t, sessions, "7")

	factor, err := service.Enroll(ctx, 7, "authenticator")
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if _, err := service.Challenge(ctx, 99, factor.ID, sess.ID); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("foreign factor must look like not found, got %v", err)
	}
}

func TestVerifyRejectsCrossUserChallenge(t *testing.T) {
	service, _, sessions, _ := newServiceFixture(t)
	ctx := context.Background()
	sess := liveSession(t, sessions, "7")

	factor, err := service.Enroll(ctx, 7, "authenticator")
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	challenge, err := service.Challenge(ctx, 7, factor.ID, sess.ID)
	if err != nil {
		t.Fatalf("challenge: %v", err)
	}
	code, err := mfa.TOTPCode(factor.Secret, time.Now())
	if err != nil {
		t.Fatalf("code: %v", err)
	}

	err = service.Verify(ctx, 99, challenge.ID, sess.ID, code)
	if !errors.Is(err, mfa.ErrChallengeExpired) {
		t.Fatalf("cross-user verify must fail opaquely, got %v", err)
	}
}
