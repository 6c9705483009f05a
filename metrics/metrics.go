// Package metrics exposes Prometheus collectors for the menu catalog.
//
// All collectors live on a private registry so tests can create as many
// Metrics values as they like. Every method is safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "menu_catalog"

// Outcome labels for menu item operations.
const (
	OutcomeSuccess    = "success"
	OutcomeNotFound   = "not_found"
	OutcomeInvalid    = "invalid"
	OutcomeError      = "error"
	OutcomeImageError = "image_error"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	menuItemOps         *prometheus.CounterVec
	imageBytesStored    prometheus.Counter
	imageDeleteFailures prometheus.Counter
	hubClients          prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	auto := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route, method and status code",
		}, []string{"route", "method", "status_code"}),
		httpRequestDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		menuItemOps: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "menu_items",
			Name:      "operations_total",
			Help:      "Menu item operations by kind and outcome",
		}, []string{"operation", "outcome"}),
		imageBytesStored: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "images",
			Name:      "stored_bytes_total",
			Help:      "Bytes of image data written to the image store",
		}),
		imageDeleteFailures: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "images",
			Name:      "delete_failures_total",
			Help:      "Best-effort image deletions that failed",
		}),
		hubClients: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "clients",
			Help:      "Connected websocket clients",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTPRequest(route, method, statusCode string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

func (m *Metrics) RecordMenuItemOp(operation, outcome string) {
	if m == nil {
		return
	}
	m.menuItemOps.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) AddImageBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.imageBytesStored.Add(float64(n))
}

func (m *Metrics) RecordImageDeleteFailure() {
	if m == nil {
		return
	}
	m.imageDeleteFailures.Inc()
}

func (m *Metrics) SetHubClients(n int) {
	if m == nil {
		return
	}
	m.hubClients.Set(float64(n))
}
