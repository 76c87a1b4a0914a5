package mfa

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/modulus-erp/modulus-erp/internal/shared"
)

// AssuranceNotifier is told when a session's assurance level changed so the
// auth state can be recomputed. The auth coordinator satisfies this.
type AssuranceNotifier interface {
	AssuranceChanged(sessionID string)
}

// VerifyRecorder counts verification outcomes. The observability registry
// satisfies this.
type VerifyRecorder interface {
	ObserveMFAVerification(ok bool)
}

// Service wraps second factor business rules.
type Service struct {
	repo       Repository
	challenges *ChallengeStore
	sessions   *shared.SessionManager
	notifier   AssuranceNotifier
	recorder   VerifyRecorder
	logger     *slog.Logger
	now        func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, challenges *ChallengeStore, sessions *shared.SessionManager, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:       repo,
		challenges: challenges,
		sessions:   sessions,
		logger:     logger,
		now:        time.Now,
	}
}

// WithNotifier attaches the assurance notifier. Wired after construction to
// break the cycle with the auth coordinator.
func (s *Service) WithNotifier(n AssuranceNotifier) *Service {
	s.notifier = n
	return s
}

// WithRecorder attaches the metrics recorder.
func (s *Service) WithRecorder(r VerifyRecorder) *Service {
	s.recorder = r
	return s
}

// ListFactors returns the user's enrolled factors.
func (s *Service) ListFactors(ctx context.Context, userID int64) ([]Factor, error) {
	return s.repo.ListFactors(ctx, userID)
}

// HasVerifiedFactor reports whether the user finished enrolling a factor.
// Satisfies the auth provider's factor source.
func (s *Service) HasVerifiedFactor(ctx context.Context, userID int64) (bool, error) {
	return s.repo.HasVerifiedFactor(ctx, userID)
}

// Enroll creates an unverified factor with a fresh secret. The secret is
// returned once so the client can provision an authenticator; it is never
// exposed again.
func (s *Service) Enroll(ctx context.Context, userID int64, friendlyName string) (*Factor, error) {
	secret, err := GenerateSecret()
	if err != nil {
		return nil, err
	}
	factor := &Factor{
		ID:           uuid.NewString(),
		UserID:       userID,
		FriendlyName: strings.TrimSpace(friendlyName),
		Status:       FactorStatusUnverified,
		Secret:       secret,
	}
	if err := s.repo.CreateFactor(ctx, factor); err != nil {
		return nil, err
	}
	return factor, nil
}

// Unenroll removes a factor owned by the user.
func (s *Service) Unenroll(ctx context.Context, userID int64, factorID string) error {
	return s.repo.DeleteFactor(ctx, factorID, userID)
}

// Challenge opens a verification attempt against the factor. Ownership is
// checked here so a challenge can never cross users.
func (s *Service) Challenge(ctx context.Context, userID int64, factorID, sessionID string) (*Challenge, error) {
	factor, err := s.repo.FindFactor(ctx, factorID)
	if err != nil {
		return nil, err
	}
	if factor.UserID != userID {
		return nil, shared.ErrNotFound
	}
	return s.challenges.Issue(ctx, factorID, userID, sessionID)
}

// Verify consumes the challenge and checks the TOTP code. On success the
// factor is promoted to verified if needed, the session's assurance level is
// raised to aal2 and the auth coordinator is told to recompute.
func (s *Service) Verify(ctx context.Context, userID int64, challengeID, sessionID, code string) error {
	challenge, err := s.challenges.Consume(ctx, challengeID, sessionID)
	if err != nil {
		return err
	}
	if challenge.UserID != userID {
		return ErrChallengeExpired
	}

	factor, err := s.repo.FindFactor(ctx, challenge.FactorID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return ErrChallengeExpired
		}
		return err
	}

	ok := VerifyTOTP(factor.Secret, strings.TrimSpace(code), s.now())
	if s.recorder != nil {
		s.recorder.ObserveMFAVerification(ok)
	}
	if !ok {
		return ErrInvalidCode
	}

	if factor.Status != FactorStatusVerified {
		if err := s.repo.MarkFactorVerified(ctx, factor.ID); err != nil {
			return err
		}
	}

	if err := s.raiseAssurance(ctx, sessionID); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.AssuranceChanged(sessionID)
	}
	return nil
}

func (s *Service) raiseAssurance(ctx context.Context, sessionID string) error {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	sess.SetAAL(shared.AAL2)
	return s.sessions.Save(ctx, sess)
}
