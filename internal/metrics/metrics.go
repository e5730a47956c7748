package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delegate_portal_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "delegate_portal_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	orderOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delegate_portal_order_operations_total",
			Help: "Total number of order operations",
		},
		[]string{"operation", "status"},
	)

	walletOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delegate_portal_wallet_operations_total",
			Help: "Total number of wallet operations",
		},
		[]string{"operation", "status"},
	)

	webhookNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delegate_portal_webhook_notifications_total",
			Help: "Gateway notifications by outcome",
		},
		[]string{"gateway", "outcome"},
	)

	ledgerDrift = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "delegate_portal_wallet_ledger_drift_accounts",
			Help: "Wallet accounts whose balance disagrees with their transaction log at the last reconciliation",
		},
	)
)

func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

func RecordOrderOperation(operation string, success bool) {
	orderOperations.WithLabelValues(operation, outcome(success)).Inc()
}

func RecordWalletOperation(operation string, success bool) {
	walletOperations.WithLabelValues(operation, outcome(success)).Inc()
}

// RecordWebhook counts a notification; outcome is e.g. "accepted",
// "rejected" or "error".
func RecordWebhook(gateway, result string) {
	webhookNotifications.WithLabelValues(gateway, result).Inc()
}

func SetLedgerDrift(accounts int) {
	ledgerDrift.Set(float64(accounts))
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
