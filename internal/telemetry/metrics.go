// Package telemetry exposes Prometheus metrics for the distribution
// server.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ff_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ff_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// Evaluations counts flag resolutions served over the API, labeled
	// by flag name and whether a rule produced a value.
	Evaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ff_evaluations_total",
			Help: "Flag evaluations served by the API",
		},
		[]string{"flag", "found"},
	)

	// SSEClients tracks currently connected event stream listeners.
	SSEClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ff_sse_clients",
		Help: "Number of currently connected SSE clients",
	})

	// ServedFlags is the flag count of the table currently being served.
	ServedFlags = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ff_served_flags",
		Help: "Number of flags in the currently served table",
	})
)

func Init() {
	prometheus.MustRegister(httpReqs, httpDur, Evaluations, SSEClients, ServedFlags)
}

// RecordEvaluation counts one API evaluation outcome.
func RecordEvaluation(flag string, found bool) {
	Evaluations.WithLabelValues(flag, strconv.FormatBool(found)).Inc()
}

// Middleware observes request counts and latency per chi route.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

		httpReqs.WithLabelValues(route, r.Method, strconv.Itoa(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
