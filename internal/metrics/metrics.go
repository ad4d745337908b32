package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Job outcomes
const (
	OutcomeCompleted = "completed"
	OutcomeRetried   = "retried"
	OutcomeFailed    = "failed"
)

// Metrics holds the collectors shared by the API and worker services
type Metrics struct {
	JobsSubmitted   prometheus.Counter
	UploadFailures  *prometheus.CounterVec
	JobsProcessed   *prometheus.CounterVec
	ProcessDuration prometheus.Histogram
	CombineDuration *prometheus.HistogramVec
	ActiveJobs      prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers all collectors on reg
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		JobsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "clipstack",
			Name:      "jobs_submitted_total",
			Help:      "Jobs accepted by the upload API",
		}),
		UploadFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clipstack",
			Name:      "upload_failures_total",
			Help:      "Upload requests that failed, by reason",
		}, []string{"reason"}),
		JobsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clipstack",
			Name:      "jobs_processed_total",
			Help:      "Job deliveries handled by workers, by outcome",
		}, []string{"outcome"}),
		ProcessDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clipstack",
			Name:      "job_duration_seconds",
			Help:      "Time from claim to terminal outcome of a delivery",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		CombineDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clipstack",
			Name:      "combine_duration_seconds",
			Help:      "ffmpeg run time, by layout",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}, []string{"layout"}),
		ActiveJobs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "clipstack",
			Name:      "active_jobs",
			Help:      "Jobs currently being processed",
		}),
		gatherer: gatherer,
	}
}

// ObserveJob records a finished delivery
func (m *Metrics) ObserveJob(outcome string, elapsed time.Duration) {
	m.JobsProcessed.WithLabelValues(outcome).Inc()
	m.ProcessDuration.Observe(elapsed.Seconds())
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
