// Package metrics registers Prometheus metrics for the referral pipeline.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Business metrics
	ClicksTracked       prometheus.Counter
	ConversionsRecorded *prometheus.CounterVec // outcome: attributed, unattributed, duplicate
	PayoutsCreated      *prometheus.CounterVec // status: completed, failed
	BulkOperations      *prometheus.CounterVec // action
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),

		ClicksTracked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "referral_clicks_tracked_total",
			Help: "Total number of referral clicks recorded",
		}),
		ConversionsRecorded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conversions_recorded_total",
				Help: "Total number of conversion reports processed",
			},
			[]string{"outcome"},
		),
		PayoutsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payouts_created_total",
				Help: "Total number of creator payouts created",
			},
			[]string{"status"},
		),
		BulkOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bulk_operations_total",
				Help: "Total number of administrative bulk operations",
			},
			[]string{"action"},
		),
	}
}

// Middleware records HTTP request metrics for every route
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			labels := []string{c.Request().Method, c.Path(), strconv.Itoa(status)}
			m.HTTPRequestsTotal.WithLabelValues(labels...).Inc()
			m.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
