// Package metrics exposes Prometheus collectors for HTTP traffic and ledger activity.
package metrics

import (
	"strconv" // Status code labels
	"time"    // Request durations

	"github.com/gin-gonic/gin"                                // Gin web framework
	"github.com/prometheus/client_golang/prometheus"          // Metric types
	"github.com/prometheus/client_golang/prometheus/promauto" // Registration on the default registry
	"github.com/prometheus/client_golang/prometheus/promhttp" // Exposition handler
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// RoundupTransactions counts simulated purchases.
	RoundupTransactions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roundup_transactions_total",
		Help: "Simulated card purchases.",
	})

	// RoundupAmount sums round-ups credited to wallets.
	RoundupAmount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roundup_amount_total",
		Help: "Round-up amount credited to wallets.",
	})

	// Transfers counts wallet transfers by destination type.
	Transfers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transfers_total",
		Help: "Completed wallet transfers by destination.",
	}, []string{"type"})

	// RecurringExecuted counts recurring deposits credited by the scheduler.
	RecurringExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recurring_deposits_executed_total",
		Help: "Recurring deposits credited to wallets.",
	})
)

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
