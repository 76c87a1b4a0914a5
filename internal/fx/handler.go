package fx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/modulus-erp/modulus-erp/internal/platform/httpx"
)

// Handler exposes the rate table and conversion over JSON.
type Handler struct {
	logger   *slog.Logger
	resolver Resolver
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, resolver Resolver) *Handler {
	return &Handler{
		logger:   logger,
		resolver: resolver,
		validate: validator.New(),
	}
}

// MountRoutes registers fx routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/rates", h.rates)
	r.Post("/convert", h.convert)
}

type ratesResponse struct {
	Date  string `json:"date"`
	Rates Table  `json:"rates"`
}

func (h *Handler) rates(w http.ResponseWriter, r *http.Request) {
	date, ok := h.parseDate(r.URL.Query().Get("date"))
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	table := h.resolver.RatesForDate(r.Context(), date)
	httpx.JSON(w, http.StatusOK, ratesResponse{
		Date:  date.Format("2006-01-02"),
		Rates: table,
	})
}

type convertRequest struct {
	Amount   float64 `json:"amount" validate:"required"`
	From     string  `json:"from" validate:"required,len=3,uppercase"`
	To       string  `json:"to" validate:"required,len=3,uppercase"`
	RateType string  `json:"rate_type" validate:"required,oneof=MBDA MBDS MEDA MEDS"`
	Date     string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type convertResponse struct {
	Result   *float64 `json:"result"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	RateType string   `json:"rate_type"`
	Date     string   `json:"date"`
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	date, ok := h.parseDate(req.Date)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}

	table := h.resolver.RatesForDate(r.Context(), date)
	resp := convertResponse{
		From:     req.From,
		To:       req.To,
		RateType: req.RateType,
		Date:     date.Format("2006-01-02"),
	}
	// A missing rate is "conversion unavailable", surfaced as a null result
	// rather than an error status.
	if result, converted := Convert(req.Amount, req.From, req.To, table, RateKind(req.RateType)); converted {
		resp.Result = &result
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) parseDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Now(), true
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}
