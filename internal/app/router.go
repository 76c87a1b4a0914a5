package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/modulus-erp/modulus-erp/internal/access"
	"github.com/modulus-erp/modulus-erp/internal/admin"
	"github.com/modulus-erp/modulus-erp/internal/auth"
	"github.com/modulus-erp/modulus-erp/internal/fx"
	"github.com/modulus-erp/modulus-erp/internal/mfa"
	"github.com/modulus-erp/modulus-erp/internal/observability"
	"github.com/modulus-erp/modulus-erp/internal/platform/httpx"
	"github.com/modulus-erp/modulus-erp/internal/shared"
	"github.com/modulus-erp/modulus-erp/internal/validation"
	"github.com/modulus-erp/modulus-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	SessionManager    *shared.SessionManager
	CSRFManager       *shared.CSRFManager
	RouteGuard        *access.Guard
	AuthHandler       *auth.Handler
	MFAHandler        *mfa.Handler
	FXHandler         *fx.Handler
	ValidationHandler *validation.Handler
	AdminHandler      *admin.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with Modulus defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	if params.RouteGuard != nil {
		r.Use(params.RouteGuard.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Landing endpoint for signed-out clients. Hands out the CSRF token the
	// client must echo on mutating requests.
	r.Get("/welcome", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		csrfToken := ""
		if sess != nil {
			csrfToken, _ = params.CSRFManager.EnsureToken(r.Context(), sess)
		}
		httpx.JSON(w, http.StatusOK, map[string]string{
			"app":        "Modulus",
			"csrf_token": csrfToken,
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			http.Redirect(w, r, "/welcome", http.StatusSeeOther)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"app": "Modulus", "env": params.Config.AppEnv})
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.MFAHandler != nil {
		r.Route("/mfa", params.MFAHandler.MountRoutes)
	}
	if params.FXHandler != nil {
		r.Route("/fx", params.FXHandler.MountRoutes)
	}
	if params.ValidationHandler != nil {
		r.Route("/validation", params.ValidationHandler.MountRoutes)
	}
	if params.AdminHandler != nil {
		r.Route("/admin", params.AdminHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
