// Package metrics registers the service's prometheus collectors.
package metrics

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts handled HTTP requests by method, path and status.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cropbase",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "handled HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// IngestRows counts CSV rows by outcome: inserted, updated or skipped.
	IngestRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cropbase",
			Subsystem: "ingest",
			Name:      "rows_total",
			Help:      "ingested CSV rows by outcome",
		},
		[]string{"outcome"},
	)

	// PredictionSeconds tracks scoring latency per prediction.
	PredictionSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cropbase",
			Subsystem: "predict",
			Name:      "duration_seconds",
			Help:      "latency of one prediction",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Handler exposes the default prometheus registry as an echo handler.
func Handler() echo.HandlerFunc {
	h := promhttp.Handler()
	return func(c echo.Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}

// Middleware counts each handled request.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			RequestsTotal.WithLabelValues(
				c.Request().Method, c.Path(), strconv.Itoa(c.Response().Status),
			).Inc()
			return nil
		}
	}
}
