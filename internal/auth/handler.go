package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/modulus-erp/modulus-erp/internal/access"
	"github.com/modulus-erp/modulus-erp/internal/platform/httpx"
	"github.com/modulus-erp/modulus-erp/internal/shared"
)

// LandingPath is where signed-out sessions are sent.
const LandingPath = "/welcome"

// LoginRecorder counts login outcomes. The observability registry satisfies
// this.
type LoginRecorder interface {
	ObserveLogin(ok bool)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	coordinator    *Coordinator
	tokens         *TokenIssuer
	sessionManager *shared.SessionManager
	recorder       LoginRecorder
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, coordinator *Coordinator, tokens *TokenIssuer, sessions *shared.SessionManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		coordinator:    coordinator,
		tokens:         tokens,
		sessionManager: sessions,
		validator:      validator.New(),
	}
}

// WithRecorder attaches the metrics recorder.
func (h *Handler) WithRecorder(r LoginRecorder) *Handler {
	h.recorder = r
	return h
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/session", h.handleSession)
	r.Post("/refresh", h.handleRefresh)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	AccessToken  string              `json:"access_token,omitempty"`
	User         sessionUser         `json:"user"`
	Capabilities access.Capabilities `json:"capabilities"`
	MFARequired  bool                `json:"mfa_required"`
}

type sessionUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type sessionResponse struct {
	Status       Status              `json:"status"`
	User         *sessionUser        `json:"user,omitempty"`
	Capabilities access.Capabilities `json:"capabilities"`
	MFARequired  bool                `json:"mfa_required"`
	MFAVerified  bool                `json:"mfa_verified"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if h.recorder != nil {
		h.recorder.ObserveLogin(err == nil)
	}
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, "Invalid credentials", "email or password is incorrect")
			return
		}
		h.logger.Error("authenticate", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Login failed", "")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Login failed", "")
		return
	}
	sess.SetUser(strconv.FormatInt(user.ID, 10))
	sess.SetAAL(shared.AAL1)

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	h.coordinator.Notify(Event{Kind: EventSignedIn, SessionID: sess.ID})
	if err := h.sessionManager.Save(r.Context(), sess); err != nil {
		h.logger.Warn("persist session", slog.Any("error", err))
	}
	snap := h.coordinator.Snapshot(r.Context(), sess.ID)

	token, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.Error("issue token", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Login failed", "")
		return
	}

	httpx.JSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		User: sessionUser{
			ID:    user.ID,
			Email: user.Email,
			Role:  snap.Role.String(),
		},
		Capabilities: snap.Capabilities,
		MFARequired:  snap.MFARequired,
	})
}

// handleLogout tears down both session stores and replies with the landing
// path: the client must hard-navigate there instead of re-rendering.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.coordinator.SignOut(r.Context(), sess.ID); err != nil {
			h.logger.Warn("sign out", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"redirect": LandingPath})
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	sessionID := ""
	if sess != nil && !sess.IsNew() {
		sessionID = sess.ID
	}
	snap := h.coordinator.Snapshot(r.Context(), sessionID)
	httpx.JSON(w, http.StatusOK, snapshotResponse(snap))
}

// handleRefresh forces the coordinator to recompute session state, mirroring
// a token refresh on the client.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "No session", "")
		return
	}
	snap := h.coordinator.Refresh(r.Context(), sess.ID)
	httpx.JSON(w, http.StatusOK, snapshotResponse(snap))
}

func snapshotResponse(snap Snapshot) sessionResponse {
	resp := sessionResponse{
		Status:       snap.Status,
		Capabilities: snap.Capabilities,
		MFARequired:  snap.MFARequired,
		MFAVerified:  snap.MFAVerified,
	}
	if snap.Status == StatusAuthenticated {
		resp.User = &sessionUser{
			ID:    snap.UserID,
			Email: snap.Email,
			Role:  snap.Role.String(),
		}
	}
	return resp
}
