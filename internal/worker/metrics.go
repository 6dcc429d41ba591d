package worker

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry             *prometheus.Registry
	jobsTotal            *prometheus.CounterVec
	jobDuration          *prometheus.HistogramVec
	activeJobs           prometheus.Gauge
	outputBytesTotal     prometheus.Counter
	pixelsProcessedTotal prometheus.Counter
	bytesSavedTotal      prometheus.Counter
	computeTimeMSTotal   prometheus.Counter
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &metrics{
		registry: registry,
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "framepost_worker_jobs_total",
			Help: "Total worker jobs by source type and final status.",
		}, []string{"source_type", "status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "framepost_worker_job_duration_seconds",
			Help:    "Total processing duration for each worker job.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source_type", "status"}),
		activeJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "framepost_worker_active_jobs",
			Help: "Current number of active capture jobs in the worker.",
		}),
		outputBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "framepost_worker_output_bytes_total",
			Help: "Total encoded output bytes emitted by the worker.",
		}),
		pixelsProcessedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "framepost_usage_pixels_processed_total",
			Help: "Total pixels processed across all successful jobs.",
		}),
		bytesSavedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "framepost_usage_bytes_saved_total",
			Help: "Total bytes saved across all successful jobs.",
		}),
		computeTimeMSTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "framepost_usage_compute_time_ms_total",
			Help: "Total compute time in milliseconds across successful jobs.",
		}),
	}

	registry.MustRegister(
		m.jobsTotal,
		m.jobDuration,
		m.activeJobs,
		m.outputBytesTotal,
		m.pixelsProcessedTotal,
		m.bytesSavedTotal,
		m.computeTimeMSTotal,
	)
	return m
}

func (m *metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
