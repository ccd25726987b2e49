package middleware

import (
	"bufio"
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"glowUpAPI/internal/logger"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
	authRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_rejections_total",
			Help: "Total number of unauthorized requests",
		},
		[]string{"reason"},
	)
	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Requests rejected by the per-client rate limiter",
		},
	)
)

// InitPrometheus registers the metrics. Call this from main.go
func InitPrometheus(reg prometheus.Registerer) {
	reg.MustRegister(httpRequestsTotal, httpRequestDuration, authRejections, rateLimited)
}

// routeLabel uses the mux path template so ids in paths do not explode the
// label set.
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// MonitorMiddleware wraps the router to track all request stats
func MonitorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Initialize with 200 OK in case WriteHeader isn't called explicitly
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		path := routeLabel(r)

		httpRequestsTotal.WithLabelValues(path, r.Method, strconv.Itoa(ww.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(path, r.Method).Observe(duration.Seconds())

		switch ww.statusCode {
		case http.StatusUnauthorized:
			authRejections.WithLabelValues("401_unauthorized").Inc()
		case http.StatusForbidden:
			authRejections.WithLabelValues("403_forbidden").Inc()
		}

		logger.Debug("request", "method", r.Method, "path", path, "status", ww.statusCode, "duration", duration)
	})
}

// BasicAuthMiddleware protects /metrics. With no credentials configured the
// endpoint is closed.
func BasicAuthMiddleware(metricsUser, metricsPass string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()

			valid := ok && metricsUser != "" &&
				subtle.ConstantTimeCompare([]byte(user), []byte(metricsUser)) == 1 &&
				subtle.ConstantTimeCompare([]byte(pass), []byte(metricsPass)) == 1
			if !valid {
				w.Header().Set("WWW-Authenticate", `Basic realm="Metrics"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Hijack is needed for websocket upgrades behind this middleware.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}
