package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Payment flow metrics
	PaymentInitiations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_initiations_total",
			Help: "Total number of payment initiations by gateway and outcome",
		},
		[]string{"gateway", "outcome"},
	)

	GatewayFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_fallbacks_total",
			Help: "Total number of initiations served by a fallback gateway",
		},
		[]string{"gateway"},
	)

	PaymentsReconciled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_reconciled_total",
			Help: "Terminal payment transitions applied by the reconciliation engine",
		},
		[]string{"status", "source"},
	)

	// OversubscribedPayments counts payments failed because a concurrent
	// payment consumed the assignment's headroom first. This is a monitored
	// concurrency edge case, kept separate from gateway failures.
	OversubscribedPayments = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_oversubscriptions_total",
			Help: "Payments failed due to fee assignment oversubscription",
		},
	)

	WebhookRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_signature_rejections_total",
			Help: "Inbound webhooks rejected for an invalid signature",
		},
		[]string{"gateway"},
	)

	DuplicateWebhooks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_duplicates_total",
			Help: "Webhooks absorbed as no-ops because the payment was already terminal",
		},
		[]string{"gateway"},
	)

	ReceiptDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receipt_deliveries_total",
			Help: "Receipt delivery attempts by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

// statusRecorder captures the response code written by the wrapped handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware records Prometheus metrics for each HTTP request
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		httpRequestDuration.WithLabelValues(r.URL.Path, r.Method).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.URL.Path, r.Method, http.StatusText(recorder.status)).Inc()
	})
}
