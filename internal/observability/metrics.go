package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	logins          *prometheus.CounterVec
	mfaVerifies     *prometheus.CounterVec
	tcmbFetches     *prometheus.CounterVec
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modulus_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "modulus_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	logins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modulus_logins_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})
	mfaVerifies := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modulus_mfa_verifications_total",
		Help: "TOTP verification attempts by outcome.",
	}, []string{"outcome"})
	tcmbFetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modulus_tcmb_fetches_total",
		Help: "TCMB rate feed fetches by outcome.",
	}, []string{"outcome"})
	registry.MustRegister(requests, duration, logins, mfaVerifies, tcmbFetches)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		logins:          logins,
		mfaVerifies:     mfaVerifies,
		tcmbFetches:     tcmbFetches,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveLogin counts a login attempt.
func (m *Metrics) ObserveLogin(ok bool) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome(ok)).Inc()
}

// ObserveMFAVerification counts a TOTP verification attempt.
func (m *Metrics) ObserveMFAVerification(ok bool) {
	if m == nil {
		return
	}
	m.mfaVerifies.WithLabelValues(outcome(ok)).Inc()
}

// ObserveTCMBFetch counts a rate feed fetch.
func (m *Metrics) ObserveTCMBFetch(ok bool) {
	if m == nil {
		return
	}
	m.tcmbFetches.WithLabelValues(outcome(ok)).Inc()
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
