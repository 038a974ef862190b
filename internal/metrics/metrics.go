package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector records upload, conversion and retention metrics. A nil
// *Collector is valid and records nothing.
type Collector struct {
	uploads            *prometheus.CounterVec
	conversionDuration *prometheus.HistogramVec
	sweepRemoved       prometheus.Counter
	sweepFailures      prometheus.Counter
}

func NewCollector(registry prometheus.Registerer) *Collector {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	return &Collector{
		uploads: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "imgconv_uploads_total",
				Help: "Total number of upload requests by outcome",
			},
			[]string{"outcome"},
		),
		conversionDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "imgconv_conversion_duration_seconds",
				Help:    "Duration of grayscale conversions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "status"},
		),
		sweepRemoved: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "imgconv_sweep_removed_total",
				Help: "Total number of images removed by retention sweeps",
			},
		),
		sweepFailures: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "imgconv_sweep_failures_total",
				Help: "Total number of images a retention sweep failed to remove",
			},
		),
	}
}

func (c *Collector) RecordUpload(outcome string) {
	if c == nil {
		return
	}
	c.uploads.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveConversion(format string, ok bool, elapsed time.Duration) {
	if c == nil {
		return
	}
	if format == "" {
		format = "unknown"
	}
	status := "ok"
	if !ok {
		status = "failed"
	}
	c.conversionDuration.WithLabelValues(format, status).Observe(elapsed.Seconds())
}

func (c *Collector) RecordSweep(removed, failed int) {
	if c == nil {
		return
	}
	c.sweepRemoved.Add(float64(removed))
	c.sweepFailures.Add(float64(failed))
}
