// Package metrics collects per-library build metrics of one run and writes
// them in the Prometheus text format for the node exporter textfile
// collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Recorder holds the metrics of one run in its own registry.
type Recorder struct {
	registry *prometheus.Registry
	duration *prometheus.HistogramVec
	builds   *prometheus.CounterVec
}

// New returns an empty Recorder.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "depbuild_library_build_duration_seconds",
				Help: "Wall time of one library build, from patch to validation",
				// 1s to about an hour
				Buckets: prometheus.ExponentialBuckets(1, 2, 13),
			},
			[]string{"library", "build_system"},
		),
		builds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "depbuild_library_builds_total",
				Help: "Library builds by result",
			},
			[]string{"library", "result"},
		),
	}
}

// Observe records one finished library build.
func (r *Recorder) Observe(library, buildSystem string, d time.Duration, ok bool) {
	result := ResultFailure
	if ok {
		result = ResultSuccess
	}
	r.duration.WithLabelValues(library, buildSystem).Observe(d.Seconds())
	r.builds.WithLabelValues(library, result).Inc()
}

// Gatherer exposes the registry of r.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteFile atomically writes the metrics to path.
func (r *Recorder) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
