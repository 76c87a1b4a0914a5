package validation

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/modulus-erp/modulus-erp/internal/platform/httpx"
)

// Handler wires the validation endpoints.
type Handler struct {
	logger    *slog.Logger
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, validator: validator.New()}
}

// MountRoutes registers validation routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/tax-id", h.handleTaxID)
	r.Post("/iban", h.handleIBAN)
}

type taxIDRequest struct {
	Value string `json:"value" validate:"required,max=32"`
}

type taxIDResponse struct {
	Valid bool      `json:"valid"`
	Type  TaxIDType `json:"type"`
}

type ibanRequest struct {
	Value string `json:"value" validate:"required,max=64"`
}

type ibanResponse struct {
	Valid     bool   `json:"valid"`
	Formatted string `json:"formatted,omitempty"`
}

func (h *Handler) handleTaxID(w http.ResponseWriter, r *http.Request) {
	var req taxIDRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	kind := TaxIDTypeOf(req.Value)
	httpx.JSON(w, http.StatusOK, taxIDResponse{Valid: kind != TaxIDInvalid, Type: kind})
}

func (h *Handler) handleIBAN(w http.ResponseWriter, r *http.Request) {
	var req ibanRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	resp := ibanResponse{Valid: ValidateIBAN(req.Value)}
	if resp.Valid {
		resp.Formatted = FormatIBAN(req.Value)
	}
	httpx.JSON(w, http.StatusOK, resp)
}
