// Package metrics exports Prometheus counters for rendering, printing and the HTTP API
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thereceipt/label-engine/internal/printer"
	"github.com/thereceipt/label-engine/internal/renderer"
)

var _ renderer.Observer = (*Metrics)(nil)

// Metrics holds the engine's collectors. It implements renderer.Observer.
type Metrics struct {
	gatherer prometheus.Gatherer

	labelsRendered  *prometheus.CounterVec
	barcodeTier     *prometheus.CounterVec
	tierFailures    *prometheus.CounterVec
	composeDuration *prometheus.HistogramVec
	printJobs       *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New registers the collectors with reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,

		labelsRendered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "label_engine_labels_rendered_total",
				Help: "Total number of labels composed",
			},
			[]string{"spec"},
		),
		barcodeTier: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "label_engine_barcode_tier_total",
				Help: "Barcodes drawn per fallback tier",
			},
			[]string{"tier"},
		),
		tierFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "label_engine_barcode_tier_failures_total",
				Help: "Barcode tier attempts that failed",
			},
			[]string{"tier"},
		),
		composeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "label_engine_compose_duration_seconds",
				Help:    "Time to compose one canvas",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"spec"},
		),
		printJobs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "label_engine_print_jobs_total",
				Help: "Print jobs by final status",
			},
			[]string{"status"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "label_engine_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "label_engine_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
	}
}

// TierUsed counts the tier that produced a barcode
func (m *Metrics) TierUsed(_ string, tier renderer.Tier) {
	m.barcodeTier.WithLabelValues(tier.String()).Inc()
}

// TierFailed counts a failed tier attempt
func (m *Metrics) TierFailed(_ string, tier renderer.Tier, _ error) {
	m.tierFailures.WithLabelValues(tier.String()).Inc()
}

// Composed records one composed canvas
func (m *Metrics) Composed(spec string, labels int, elapsed time.Duration) {
	m.labelsRendered.WithLabelValues(spec).Add(float64(labels))
	m.composeDuration.WithLabelValues(spec).Observe(elapsed.Seconds())
}

// JobUpdated counts jobs that reached a final status
func (m *Metrics) JobUpdated(job printer.PrintJob) {
	switch job.Status {
	case printer.StatusCompleted, printer.StatusFailed:
		m.printJobs.WithLabelValues(job.Status).Inc()
	}
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(method, endpoint string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
