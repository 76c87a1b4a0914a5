package auth

import (
	"context"
	"errors"
	"strconv"

	"github.com/modulus-erp/modulus-erp/internal/shared"
)

// ErrNoSession indicates no live session exists for the given ID.
var ErrNoSession = errors.New("auth: no session")

// FactorSource reports whether a user has a verified second factor. The MFA
// service satisfies this.
type FactorSource interface {
	HasVerifiedFactor(ctx context.Context, userID int64) (bool, error)
}

// Provider is the auth backend surface the coordinator consumes: session
// retrieval, assurance levels and sign-out.
type Provider interface {
	Session(ctx context.Context, sessionID string) (*SessionState, error)
	Assurance(ctx context.Context, sessionID string) (Assurance, error)
	SignOut(ctx context.Context, sessionID string) error
}

// StoreProvider implements Provider on top of the Redis session store, the
// postgres user repository and the MFA factor source.
type StoreProvider struct {
	sessions *shared.SessionManager
	service  *Service
	factors  FactorSource
}

// NewStoreProvider constructs a StoreProvider.
func NewStoreProvider(sessions *shared.SessionManager, service *Service, factors FactorSource) *StoreProvider {
	return &StoreProvider{sessions: sessions, service: service, factors: factors}
}

// Session resolves the live session state, or ErrNoSession.
func (p *StoreProvider) Session(ctx context.Context, sessionID string) (*SessionState, error) {
	sess, err := p.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	if sess.User() == "" {
		return nil, ErrNoSession
	}
	userID, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		return nil, ErrNoSession
	}
	user, err := p.service.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	return &SessionState{
		ID:     sessionID,
		UserID: user.ID,
		Email:  user.Email,
		AAL:    sess.AAL(),
	}, nil
}

// Assurance reports the achieved level from the session and the required
// level from factor enrollment: a verified factor raises the requirement to
// aal2.
func (p *StoreProvider) Assurance(ctx context.Context, sessionID string) (Assurance, error) {
	state, err := p.Session(ctx, sessionID)
	if err != nil {
		return Assurance{}, err
	}
	next := state.AAL
	if p.factors != nil {
		enrolled, err := p.factors.HasVerifiedFactor(ctx, state.UserID)
		if err != nil {
			return Assurance{}, err
		}
		if enrolled {
			next = shared.AAL2
		}
	}
	return Assurance{CurrentLevel: state.AAL, NextLevel: next}, nil
}

// SignOut invalidates the session everywhere: the postgres audit row, the
// Redis session record and every other auth-prefixed artifact.
func (p *StoreProvider) SignOut(ctx context.Context, sessionID string) error {
	if err := p.service.RemoveSession(ctx, sessionID); err != nil {
		return err
	}
	return p.sessions.PurgeAuthArtifacts(ctx, sessionID)
}
