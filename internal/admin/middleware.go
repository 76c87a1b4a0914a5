package admin

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/modulus-erp/modulus-erp/internal/access"
	"github.com/modulus-erp/modulus-erp/internal/auth"
	"github.com/modulus-erp/modulus-erp/internal/platform/httpx"
	"github.com/modulus-erp/modulus-erp/internal/shared"
)

type actorContextKey struct{}

// ActorFromContext returns the administrator attached by Authenticator.
func ActorFromContext(ctx context.Context) *Actor {
	actor, _ := ctx.Value(actorContextKey{}).(*Actor)
	return actor
}

// Authenticator resolves bearer tokens into admin actors. The role is
// recomputed from the account's current email on every request, so a token
// issued before a policy change carries no stale privileges.
type Authenticator struct {
	tokens *auth.TokenIssuer
	repo   Repository
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(tokens *auth.TokenIssuer, repo Repository) *Authenticator {
	return &Authenticator{tokens: tokens, repo: repo}
}

// Middleware authenticates the bearer token and attaches the actor.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Missing token", "authorization header with a bearer token is required")
			return
		}
		claims, err := a.tokens.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusUnauthorized, "Invalid token", "the bearer token is invalid or expired")
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			httpx.Problem(w, http.StatusUnauthorized, "Invalid token", "the bearer token is invalid or expired")
			return
		}
		email, err := a.repo.EmailByUserID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				httpx.Problem(w, http.StatusUnauthorized, "Invalid token", "the account no longer exists or is inactive")
				return
			}
			httpx.Problem(w, http.StatusInternalServerError, "Authentication failed", "")
			return
		}
		actor := &Actor{UserID: userID, Email: email, Role: access.RoleForEmail(email)}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorContextKey{}, actor)))
	})
}

// RequireAdmin rejects actors without administrative privileges.
func RequireAdmin(next http.Handler) http.Handler {
	return requireRole(next, func(role access.Role) bool { return role.IsAdmin() })
}

// RequireSuperAdmin rejects everyone but super administrators.
func RequireSuperAdmin(next http.Handler) http.Handler {
	return requireRole(next, func(role access.Role) bool { return role == access.RoleSuperAdmin })
}

func requireRole(next http.Handler, allowed func(access.Role) bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := ActorFromContext(r.Context())
		if actor == nil {
			httpx.Problem(w, http.StatusUnauthorized, "Missing token", "authorization header with a bearer token is required")
			return
		}
		if !allowed(actor.Role) {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient privileges")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
