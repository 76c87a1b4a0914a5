package access

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/modulus-erp/modulus-erp/internal/platform/httpx"
	"github.com/modulus-erp/modulus-erp/internal/shared"
)

// EmailResolver looks up the email address behind a session user ID. The
// auth service satisfies this.
type EmailResolver interface {
	EmailForUser(ctx context.Context, userID string) (string, error)
}

// Guard gates navigation into protected route prefixes.
type Guard struct {
	Resolver EmailResolver
	Logger   *slog.Logger
	// LandingPath receives unauthenticated or unauthorized navigations.
	LandingPath string
}

// Middleware rejects requests into protected prefixes the current identity
// cannot reach. Unauthenticated callers are sent to the landing surface,
// authorized ones pass through untouched.
func (g Guard) Middleware(next http.Handler) http.Handler {
	landing := g.LandingPath
	if landing == "" {
		landing = "/welcome"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsProtectedRoute(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		// Bearer requests are authenticated downstream by the admin
		// middleware against the same policy.
		if strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			next.ServeHTTP(w, r)
			return
		}

		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			g.deny(w, r, http.StatusUnauthorized, landing, "sign in required")
			return
		}

		email := ""
		if g.Resolver != nil {
			resolved, err := g.Resolver.EmailForUser(r.Context(), sess.User())
			if err != nil {
				if g.Logger != nil {
					g.Logger.Warn("route guard resolve email", slog.String("user", sess.User()), slog.Any("error", err))
				}
			} else {
				email = resolved
			}
		}

		if !CanAccessRoute(r.URL.Path, email) {
			g.deny(w, r, http.StatusForbidden, landing, "insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g Guard) deny(w http.ResponseWriter, r *http.Request, status int, landing, detail string) {
	if wantsHTML(r) {
		http.Redirect(w, r, landing, http.StatusSeeOther)
		return
	}
	if status == http.StatusUnauthorized {
		httpx.Problem(w, status, "Unauthorized", detail)
		return
	}
	httpx.Problem(w, status, "Forbidden", detail)
}

func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html")
}
