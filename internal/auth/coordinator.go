package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/modulus-erp/modulus-erp/internal/access"
	"github.com/modulus-erp/modulus-erp/internal/shared"
)

// Status is the lifecycle state of one session's authentication.
type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusLoading       Status = "loading"
	StatusAuthenticated Status = "authenticated"
	StatusAnonymous     Status = "anonymous"
)

// EventKind enumerates auth state transitions pushed into the coordinator.
type EventKind int

const (
	// EventSignedIn marks a fresh login for a session.
	EventSignedIn EventKind = iota
	// EventSignedOut marks session invalidation.
	EventSignedOut
	// EventRefreshed marks a session whose backing state changed (token
	// refresh, MFA step-up) and must be recomputed.
	EventRefreshed
)

// Event is one auth state transition.
type Event struct {
	Kind      EventKind
	SessionID string
}

// Snapshot is the coordinator's answer to "who is signed in right now" for
// one session. Role and capabilities are pure projections of the identity
// through the access policy; the coordinator stores no authorization state
// of its own.
type Snapshot struct {
	Status       Status
	SessionID    string
	UserID       int64
	Email        string
	Role         access.Role
	Capabilities access.Capabilities
	MFARequired  bool
	MFAVerified  bool
}

// IsSuperAdmin reports whether the snapshot identity is a super admin.
func (s Snapshot) IsSuperAdmin() bool { return s.Role == access.RoleSuperAdmin }

// IsAdmin reports whether the snapshot identity reaches admin surfaces.
func (s Snapshot) IsAdmin() bool { return s.Role.IsAdmin() }

// IsDemo reports whether the snapshot identity is the demo account.
func (s Snapshot) IsDemo() bool { return s.Role == access.RoleDemo }

// IsRegular reports whether the snapshot identity is a regular user.
func (s Snapshot) IsRegular() bool { return s.Role == access.RoleRegular }

// CanAccessRoute projects route reachability from the snapshot's identity.
func (s Snapshot) CanAccessRoute(path string) bool {
	email := ""
	if s.Status == StatusAuthenticated {
		email = s.Email
	}
	return access.CanAccessRoute(path, email)
}

// DefaultSessionTimeout bounds the provider session fetch so a hanging
// provider cannot keep a caller in loading forever.
const DefaultSessionTimeout = 10 * time.Second

type sessionEntry struct {
	snap Snapshot
	// seq of the latest event applied to this session. A fetch that started
	// before a newer event resolves is stale and discarded.
	seq uint64
}

// Coordinator owns the authoritative per-session auth state. All mutation
// funnels through apply() under one lock, and every event bumps a monotonic
// sequence so late-arriving fetch results never overwrite newer state.
type Coordinator struct {
	provider Provider
	logger   *slog.Logger
	timeout  time.Duration

	mu      sync.Mutex
	seq     uint64
	entries map[string]*sessionEntry
}

// NewCoordinator constructs a Coordinator around the provider.
func NewCoordinator(provider Provider, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		provider: provider,
		logger:   logger,
		timeout:  DefaultSessionTimeout,
		entries:  make(map[string]*sessionEntry),
	}
}

// WithTimeout overrides the session fetch timeout.
func (c *Coordinator) WithTimeout(d time.Duration) *Coordinator {
	if d > 0 {
		c.timeout = d
	}
	return c
}

// Notify applies an auth state transition. The event stream is
// authoritative: it invalidates any cached snapshot so the next read
// recomputes against the provider, and a sign-out clears state immediately.
func (c *Coordinator) Notify(event Event) {
	if event.SessionID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	switch event.Kind {
	case EventSignedOut:
		c.entries[event.SessionID] = &sessionEntry{
			snap: Snapshot{Status: StatusAnonymous, SessionID: event.SessionID},
			seq:  c.seq,
		}
	case EventSignedIn, EventRefreshed:
		c.entries[event.SessionID] = &sessionEntry{
			snap: Snapshot{Status: StatusLoading, SessionID: event.SessionID},
			seq:  c.seq,
		}
	}
}

// Snapshot returns the current state for the session, fetching from the
// provider when no settled snapshot exists. A fetch failure or timeout
// settles the session as anonymous rather than leaving it loading.
func (c *Coordinator) Snapshot(ctx context.Context, sessionID string) Snapshot {
	if sessionID == "" {
		return Snapshot{Status: StatusAnonymous}
	}

	c.mu.Lock()
	entry, ok := c.entries[sessionID]
	if ok && entry.snap.Status != StatusLoading && entry.snap.Status != StatusUninitialized {
		snap := entry.snap
		c.mu.Unlock()
		return snap
	}
	startSeq := uint64(0)
	if ok {
		startSeq = entry.seq
	}
	c.mu.Unlock()

	snap := c.fetch(ctx, sessionID)
	return c.resolve(sessionID, startSeq, snap)
}

// Refresh forces a recomputation, e.g. after an MFA step-up.
func (c *Coordinator) Refresh(ctx context.Context, sessionID string) Snapshot {
	c.Notify(Event{Kind: EventRefreshed, SessionID: sessionID})
	return c.Snapshot(ctx, sessionID)
}

// SignOut invalidates the session with the provider, clears coordinator
// state and reports the landing path the caller must hard-navigate to.
func (c *Coordinator) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	err := c.provider.SignOut(ctx, sessionID)
	c.Notify(Event{Kind: EventSignedOut, SessionID: sessionID})
	return err
}

// Forget drops coordinator state for a session without touching the
// provider. Used when the session store itself already expired the session.
func (c *Coordinator) Forget(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sessionID)
}

func (c *Coordinator) fetch(ctx context.Context, sessionID string) Snapshot {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	state, err := c.provider.Session(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			c.logger.Warn("coordinator session fetch", slog.String("session", sessionID), slog.Any("error", err))
		}
		return Snapshot{Status: StatusAnonymous, SessionID: sessionID}
	}

	snap := Snapshot{
		Status:    StatusAuthenticated,
		SessionID: sessionID,
		UserID:    state.UserID,
		Email:     state.Email,
	}
	snap.Role = access.RoleForEmail(state.Email)
	snap.Capabilities = access.CapabilitiesFor(snap.Role)

	// Assurance is recomputed on every transition, never cached across
	// them: the user may have enrolled a factor mid-session.
	assurance, err := c.provider.Assurance(ctx, sessionID)
	if err != nil {
		c.logger.Warn("coordinator assurance", slog.String("session", sessionID), slog.Any("error", err))
	} else {
		switch {
		case assurance.NextLevel == shared.AAL2 && assurance.CurrentLevel == shared.AAL1:
			snap.MFARequired = true
		case assurance.CurrentLevel == shared.AAL2:
			snap.MFAVerified = true
		}
	}
	return snap
}

// resolve applies a fetched snapshot unless a newer event arrived while the
// fetch was in flight; the event stream always wins over a slow fetch.
func (c *Coordinator) resolve(sessionID string, startSeq uint64, snap Snapshot) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[sessionID]
	if ok && entry.seq != startSeq {
		// Stale resolution: keep the newer state and let the next read
		// recompute if it is still loading.
		return entry.snap
	}
	c.seq++
	c.entries[sessionID] = &sessionEntry{snap: snap, seq: c.seq}
	return snap
}
