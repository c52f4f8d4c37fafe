// Package metrics provides Prometheus instrumentation for the store API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// StoreOperationsTotal counts store workflow outcomes by operation and result code.
	StoreOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcstore_operations_total",
		Help: "Total store operations by outcome",
	}, []string{"operation", "code"})

	// StoreOperationDuration tracks store workflow latency, lock wait included.
	StoreOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arcstore_operation_duration_seconds",
		Help:    "Store operation latency in seconds",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation"})

	// StockCompensations counts stock restores after a failed game transaction.
	StockCompensations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcstore_stock_compensations_total",
		Help: "Stock reservations given back after a failed transaction",
	}, []string{"outcome"})

	// ReapedPresentsTotal counts expired purchase orders removed, by trigger.
	ReapedPresentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcstore_reaped_presents_total",
		Help: "Expired purchase orders removed",
	}, []string{"trigger"})

	// LotteryDrawsTotal counts daily lottery draws by prize id.
	LotteryDrawsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcstore_lottery_draws_total",
		Help: "Daily lottery draws by prize",
	}, []string{"prize"})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcstore_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arcstore_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveOperation records the outcome and latency of a store workflow.
func ObserveOperation(operation, code string, start time.Time) {
	StoreOperationsTotal.WithLabelValues(operation, code).Inc()
	StoreOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Route pattern keeps the label cardinality bounded.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
