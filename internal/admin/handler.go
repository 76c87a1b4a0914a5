package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/modulus-erp/modulus-erp/internal/platform/httpx"
	"github.com/modulus-erp/modulus-erp/internal/shared"
)

// MailEnqueuer pushes notification mail onto the background queue. The jobs
// client satisfies this; a nil enqueuer skips notifications.
type MailEnqueuer interface {
	EnqueueMail(ctx context.Context, to, subject, body string) error
}

const defaultPageSize = 50

// Handler wires the administration endpoints.
type Handler struct {
	logger    *slog.Logger
	repo      Repository
	mailer    MailEnqueuer
	auth      *Authenticator
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, repo Repository, authn *Authenticator, mailer MailEnqueuer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		repo:      repo,
		mailer:    mailer,
		auth:      authn,
		validator: validator.New(),
	}
}

// MountRoutes registers admin routes. Everything behind the bearer
// authenticator; password resets additionally need super admin.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.auth.Middleware)
	r.With(RequireAdmin).Get("/users", h.handleListUsers)
	r.With(RequireSuperAdmin).Post("/users/{userID}/reset-password", h.handleResetPassword)
}

type resetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", defaultPageSize)
	if perPage > 200 {
		perPage = defaultPageSize
	}

	total, err := h.repo.CountUsers(r.Context())
	if err != nil {
		h.logger.Error("count users", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Listing failed", "")
		return
	}
	pagination := shared.NewPagination(page, perPage, total)

	users, err := h.repo.ListUsers(r.Context(), pagination.PerPage, (pagination.Page-1)*pagination.PerPage)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Listing failed", "")
		return
	}
	if users == nil {
		users = []UserSummary{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"users": users,
		"pagination": map[string]int{
			"page":        pagination.Page,
			"per_page":    pagination.PerPage,
			"total":       pagination.Total,
			"total_pages": pagination.TotalPages,
		},
	})
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid user ID", "")
		return
	}

	var req resetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Reset failed", "")
		return
	}

	if err := h.repo.UpdatePassword(r.Context(), userID, string(hash)); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "User not found", "")
			return
		}
		h.logger.Error("update password", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Reset failed", "")
		return
	}

	if h.mailer != nil {
		email, err := h.repo.EmailByUserID(r.Context(), userID)
		if err == nil {
			if err := h.mailer.EnqueueMail(r.Context(), email,
				"Your password was reset",
				"An administrator reset your account password. Contact support if this was unexpected."); err != nil {
				h.logger.Warn("enqueue reset mail", slog.Any("error", err))
			}
		}
	}

	actor := ActorFromContext(r.Context())
	if actor != nil {
		h.logger.Info("password reset",
			slog.Int64("user_id", userID),
			slog.String("actor", actor.Email))
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
