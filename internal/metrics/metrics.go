package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns its registry so several instances can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	CatalogOpsTotal   *prometheus.CounterVec
	RateLimitRejected prometheus.Counter
	UploadsTotal      *prometheus.CounterVec
	UploadBytesTotal  prometheus.Counter
	PDFGeneratedTotal *prometheus.CounterVec
}

func NewCollector(serviceName string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		CatalogOpsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "catalog",
			Name:      "operations_total",
			Help:      "Catalog lifecycle operations by catalog and outcome.",
		}, []string{"catalog", "outcome"}),

		RateLimitRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}),

		UploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "storage",
			Name:      "uploads_total",
			Help:      "Attachment uploads by prefix and result.",
		}, []string{"prefix", "result"}),

		UploadBytesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "storage",
			Name:      "upload_bytes_total",
			Help:      "Bytes written to the attachment store.",
		}),

		PDFGeneratedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "pdf",
			Name:      "generated_total",
			Help:      "Generated PDF documents by kind.",
		}, []string{"kind"}),
	}
}

// CatalogOp records one catalog lifecycle outcome.
func (c *Collector) CatalogOp(catalog, outcome string) {
	if c == nil {
		return
	}
	c.CatalogOpsTotal.WithLabelValues(catalog, outcome).Inc()
}

// Upload records one attachment upload attempt.
func (c *Collector) Upload(prefix string, size int64, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	} else {
		c.UploadBytesTotal.Add(float64(size))
	}
	c.UploadsTotal.WithLabelValues(prefix, result).Inc()
}

// PDFGenerated records one generated document.
func (c *Collector) PDFGenerated(kind string) {
	if c == nil {
		return
	}
	c.PDFGeneratedTotal.WithLabelValues(kind).Inc()
}

// RateLimited records one rejected request.
func (c *Collector) RateLimited() {
	if c == nil {
		return
	}
	c.RateLimitRejected.Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
