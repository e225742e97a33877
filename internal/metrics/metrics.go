package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "moveguard_api_build_info",
			Help: "Build information of the MoveGuard API",
		},
		[]string{"version", "commit", "date"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moveguard_api_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moveguard_api_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	WorkflowExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moveguard_api_workflow_executions_total",
			Help: "Total number of workflow executions by pipeline and outcome",
		},
		[]string{"pipeline", "status"},
	)

	WorkflowStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moveguard_api_workflow_step_duration_seconds",
			Help:    "Duration of individual workflow step queries in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 240},
		},
		[]string{"pipeline", "endpoint"},
	)

	OnDemandRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moveguard_api_ondemand_requests_total",
			Help: "Total number of On-Demand API requests by operation and outcome",
		},
		[]string{"operation", "status"},
	)

	MonitorAlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moveguard_api_monitor_alerts_total",
			Help: "Total number of compliance alerts raised by the transaction monitor",
		},
		[]string{"rule", "severity"},
	)
)

// RecordWorkflowExecution records one finished (or failed) pipeline execution.
func RecordWorkflowExecution(pipeline, status string) {
	WorkflowExecutionsTotal.WithLabelValues(pipeline, status).Inc()
}

// RecordWorkflowStep records the duration of one step's remote query.
func RecordWorkflowStep(pipeline, endpoint string, duration time.Duration) {
	WorkflowStepDuration.WithLabelValues(pipeline, endpoint).Observe(duration.Seconds())
}

// RecordOnDemandRequest records one remote API call.
func RecordOnDemandRequest(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	OnDemandRequestsTotal.WithLabelValues(operation, status).Inc()
}

// RecordMonitorAlert records one compliance alert.
func RecordMonitorAlert(rule, severity string) {
	MonitorAlertsTotal.WithLabelValues(rule, severity).Inc()
}

// Middleware returns a chi middleware that records HTTP metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// Use the route pattern if available, otherwise use the path
		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = r.URL.Path
		}

		status := strconv.Itoa(ww.Status())
		duration := time.Since(start).Seconds()

		HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}
