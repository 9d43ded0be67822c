package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for the API.
type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	insertOperationsTotal *prometheus.CounterVec
	insertDuration        *prometheus.HistogramVec
	rankOperationsTotal   prometheus.Counter

	authRequestsTotal *prometheus.CounterVec

	ropesTotal   prometheus.Gauge
	symbolsTotal prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ropebwt_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ropebwt_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		insertOperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ropebwt_insert_operations_total",
				Help: "Total number of sequence insertions",
			},
			[]string{"mode", "status"},
		),
		insertDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ropebwt_insert_duration_seconds",
				Help:    "Sequence insertion duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		rankOperationsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ropebwt_rank_operations_total",
				Help: "Total number of rank queries",
			},
		),
		authRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ropebwt_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),
		ropesTotal: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ropebwt_ropes_total",
				Help: "Number of ropes currently registered",
			},
		),
		symbolsTotal: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ropebwt_symbols_total",
				Help: "Symbols stored across all registered ropes",
			},
		),
	}
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordInsert records one insertion call.
func (m *Metrics) RecordInsert(mode string, success bool, duration time.Duration) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.insertOperationsTotal.WithLabelValues(mode, status).Inc()
	m.insertDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordRank records one rank query.
func (m *Metrics) RecordRank() {
	m.rankOperationsTotal.Inc()
}

// RecordAuthRequest records an authentication attempt.
func (m *Metrics) RecordAuthRequest(success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.authRequestsTotal.WithLabelValues(status).Inc()
}

// UpdateRopeStats refreshes the registry-wide gauges.
func (m *Metrics) UpdateRopeStats(ropes int, symbols int64) {
	m.ropesTotal.Set(float64(ropes))
	m.symbolsTotal.Set(float64(symbols))
}

// InstrumentHandler wraps a handler with request metrics.
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)
		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// InstrumentAuthMiddleware wraps the authentication middleware so the outcome
// of every keyed request is counted.
func (m *Metrics) InstrumentAuthMiddleware(next func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hasAPIKey := r.Header.Get("X-API-Key") != ""

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next(h).ServeHTTP(rw, r)

			if hasAPIKey {
				m.RecordAuthRequest(rw.statusCode != http.StatusUnauthorized)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
