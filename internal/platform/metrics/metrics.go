// Package metrics owns the Prometheus collectors for report evaluation and
// HTTP traffic. All methods are safe to call on a nil *Metrics, which is what
// callers get when METRICS_ENABLED is false.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Report evaluation results used as the "result" label.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	reportEvaluations *prometheus.CounterVec
	reportDuration    *prometheus.HistogramVec
	reportRows        *prometheus.GaugeVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates and registers every collector on a private registry, along with
// the standard Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reportEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hms_report_evaluations_total",
				Help: "Total number of report evaluations",
			},
			[]string{"report", "result"},
		),
		reportDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hms_report_duration_seconds",
				Help:    "Duration of report evaluations in seconds, snapshot read included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"report"},
		),
		reportRows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hms_report_rows",
				Help: "Number of rows returned by the last evaluation of a report",
			},
			[]string{"report"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hms_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hms_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		m.reportEvaluations,
		m.reportDuration,
		m.reportRows,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveReport records one report evaluation.
func (m *Metrics) ObserveReport(reportID string, err error, duration time.Duration, rows int) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	m.reportEvaluations.WithLabelValues(reportID, result).Inc()
	m.reportDuration.WithLabelValues(reportID).Observe(duration.Seconds())
	if err == nil {
		m.reportRows.WithLabelValues(reportID).Set(float64(rows))
	}
}

// ObserveHTTPRequest records one served HTTP request. route is the matched
// route template, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the Prometheus exposition format for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
