package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/pagepack"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Build metrics
	BuildsTotal      metric.Int64Counter
	BuildErrorsTotal metric.Int64Counter
	BuildDuration    metric.Float64Histogram
	OutputFilesTotal metric.Int64Counter
	OutputBytesTotal metric.Int64Counter

	// Plugin metrics
	ImagesOptimizedTotal metric.Int64Counter
	ImageBytesSaved      metric.Int64Counter

	// Dev server metrics
	RebuildsTotal    metric.Int64Counter
	DevRequestsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.BuildsTotal, _ = meter.Int64Counter(
		"pagepack.builds.total",
		metric.WithDescription("Total number of builds started"),
		metric.WithUnit("{build}"),
	)

	m.BuildErrorsTotal, _ = meter.Int64Counter(
		"pagepack.builds.errors.total",
		metric.WithDescription("Total number of failed builds"),
		metric.WithUnit("{error}"),
	)

	m.BuildDuration, _ = meter.Float64Histogram(
		"pagepack.builds.duration",
		metric.WithDescription("Duration of builds"),
		metric.WithUnit("ms"),
	)

	m.OutputFilesTotal, _ = meter.Int64Counter(
		"pagepack.output.files.total",
		metric.WithDescription("Total number of files written to the output root"),
		metric.WithUnit("{file}"),
	)

	m.OutputBytesTotal, _ = meter.Int64Counter(
		"pagepack.output.bytes.total",
		metric.WithDescription("Total number of bundled bytes written"),
		metric.WithUnit("By"),
	)

	m.ImagesOptimizedTotal, _ = meter.Int64Counter(
		"pagepack.images.optimized.total",
		metric.WithDescription("Total number of images rewritten smaller"),
		metric.WithUnit("{image}"),
	)

	m.ImageBytesSaved, _ = meter.Int64Counter(
		"pagepack.images.saved.bytes",
		metric.WithDescription("Bytes saved by image optimisation"),
		metric.WithUnit("By"),
	)

	m.RebuildsTotal, _ = meter.Int64Counter(
		"pagepack.devserver.rebuilds.total",
		metric.WithDescription("Total number of rebuilds triggered by file changes"),
		metric.WithUnit("{build}"),
	)

	m.DevRequestsTotal, _ = meter.Int64Counter(
		"pagepack.devserver.requests.total",
		metric.WithDescription("Total number of requests served by the dev server"),
		metric.WithUnit("{request}"),
	)

	return m
}
