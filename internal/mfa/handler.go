package mfa

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/modulus-erp/modulus-erp/internal/platform/httpx"
	"github.com/modulus-erp/modulus-erp/internal/shared"
)

// Handler wires HTTP endpoints for factor management and verification.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers MFA routes on the provided router. Verification is
// rate limited per IP on top of the global limiter to slow down code
// guessing.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/factors", h.handleListFactors)
	r.Post("/factors", h.handleEnroll)
	r.Delete("/factors/{factorID}", h.handleUnenroll)
	r.Post("/challenge", h.handleChallenge)
	r.With(httprate.LimitByIP(10, time.Minute)).Post("/verify", h.handleVerify)
}

type enrollRequest struct {
	FriendlyName string `json:"friendly_name" validate:"required,max=120"`
}

type enrollResponse struct {
	Factor Factor `json:"factor"`
	Secret string `json:"secret"`
}

type challengeRequest struct {
	FactorID string `json:"factor_id" validate:"required,uuid4"`
}

type challengeResponse struct {
	ChallengeID string    `json:"challenge_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type verifyRequest struct {
	ChallengeID string `json:"challenge_id" validate:"required,uuid4"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
}

func (h *Handler) handleListFactors(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := h.identity(w, r)
	if !ok {
		return
	}
	factors, err := h.service.ListFactors(r.Context(), userID)
	if err != nil {
		h.logger.Error("list factors", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Listing failed", "")
		return
	}
	if factors == nil {
		factors = []Factor{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"factors": factors})
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req enrollRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	factor, err := h.service.Enroll(r.Context(), userID, req.FriendlyName)
	if err != nil {
		h.logger.Error("enroll factor", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Enrollment failed", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, enrollResponse{Factor: *factor, Secret: factor.Secret})
}

func (h *Handler) handleUnenroll(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := h.identity(w, r)
	if !ok {
		return
	}
	factorID := chi.URLParam(r, "factorID")
	if err := h.service.Unenroll(r.Context(), userID, factorID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Factor not found", "")
			return
		}
		h.logger.Error("unenroll factor", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Removal failed", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleChallenge(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req challengeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	challenge, err := h.service.Challenge(r.Context(), userID, req.FactorID, sessionID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Factor not found", "")
			return
		}
		h.logger.Error("issue challenge", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Challenge failed", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, challengeResponse{
		ChallengeID: challenge.ID,
		ExpiresAt:   challenge.IssuedAt.Add(h.service.challenges.TTL()),
	})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req verifyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	err := h.service.Verify(r.Context(), userID, req.ChallengeID, sessionID, req.Code)
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusOK, map[string]string{"assurance_level": shared.AAL2})
	case errors.Is(err, ErrInvalidCode):
		httpx.Problem(w, http.StatusUnauthorized, "Invalid code", "the code did not match, request a new challenge")
	case errors.Is(err, ErrChallengeExpired):
		httpx.Problem(w, http.StatusGone, "Challenge expired", "the challenge was already used or timed out")
	default:
		h.logger.Error("verify factor", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Verification failed", "")
	}
}

func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (int64, string, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "No session", "")
		return 0, "", false
	}
	userID, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "No session", "")
		return 0, "", false
	}
	return userID, sess.ID, true
}
