// Package metrics exposes scan activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/khanhnv2901/webscan/internal/checker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "webscan"

// Scan outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// scanDurationBuckets span quick single-page crawls up to full nmap runs.
var scanDurationBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

// Recorder owns a private registry with process, Go runtime and scan metrics.
type Recorder struct {
	registry *prometheus.Registry

	scansTotal    *prometheus.CounterVec
	scanDuration  *prometheus.HistogramVec
	pagesFetched  *prometheus.CounterVec
	fetchFailures prometheus.Counter
	findingsTotal *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
}

// NewRecorder registers all collectors under namespace (DefaultNamespace when empty).
func NewRecorder(namespace string) *Recorder {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Recorder{
		registry: registry,
		scansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Completed scans by kind and outcome.",
		}, []string{"kind", "outcome"}),
		scanDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Wall-clock duration of scans.",
			Buckets:   scanDurationBuckets,
		}, []string{"kind"}),
		pagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crawler",
			Name:      "pages_fetched_total",
			Help:      "Pages fetched by the passive crawler, by HTTP status class.",
		}, []string{"status_class"}),
		fetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crawler",
			Name:      "fetch_failures_total",
			Help:      "Page fetches that failed before a response was received.",
		}),
		findingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Passive findings by finding ID.",
		}, []string{"id"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "API requests by route and status code.",
		}, []string{"route", "code"}),
	}

	registry.MustRegister(
		r.scansTotal,
		r.scanDuration,
		r.pagesFetched,
		r.fetchFailures,
		r.findingsTotal,
		r.httpRequests,
	)
	return r
}

// ObserveScan records one finished scan.
func (r *Recorder) ObserveScan(kind string, failed bool, seconds float64) {
	outcome := OutcomeSuccess
	if failed {
		outcome = OutcomeFailure
	}
	r.scansTotal.WithLabelValues(kind, outcome).Inc()
	r.scanDuration.WithLabelValues(kind).Observe(seconds)
}

// ObserveRequest counts one API response.
func (r *Recorder) ObserveRequest(route string, code int) {
	r.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// PageFetched implements checker.CrawlObserver.
func (r *Recorder) PageFetched(page checker.PageRecord) {
	r.pagesFetched.WithLabelValues(statusClass(page.StatusCode)).Inc()
}

// FetchFailed implements checker.CrawlObserver.
func (r *Recorder) FetchFailed(string, error) {
	r.fetchFailures.Inc()
	r.findingsTotal.WithLabelValues(checker.FindingFetchError).Inc()
}

// FindingsRecorded implements checker.CrawlObserver.
func (r *Recorder) FindingsRecorded(findings []checker.Finding) {
	for _, f := range findings {
		r.findingsTotal.WithLabelValues(f.ID).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the underlying Prometheus registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "other"
	}
	return strconv.Itoa(code/100) + "xx"
}

var _ checker.CrawlObserver = (*Recorder)(nil)
