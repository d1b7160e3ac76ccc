package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the tracer and meter used across the build.
const InstrumentationName = "github.com/wolfeidau/frontbuild"

// Metrics holds the build instruments.
type Metrics struct {
	BuildsTotal      metric.Int64Counter
	BuildErrorsTotal metric.Int64Counter
	BuildDuration    metric.Float64Histogram
	OutputBytes      metric.Int64Counter

	ModulesLoadedTotal   metric.Int64Counter
	CompressedFilesTotal metric.Int64Counter

	ActiveWatches metric.Int64UpDownCounter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the shared Metrics, creating the instruments on first use
// against the global meter provider.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics(otel.GetMeterProvider().Meter(InstrumentationName))
	})
	return metrics
}

// Tracer returns the build tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

func initMetrics(meter metric.Meter) *Metrics {
	m := &Metrics{}

	m.BuildsTotal, _ = meter.Int64Counter(
		"frontbuild.builds.total",
		metric.WithDescription("Total number of builds started"),
		metric.WithUnit("{build}"),
	)

	m.BuildErrorsTotal, _ = meter.Int64Counter(
		"frontbuild.builds.errors.total",
		metric.WithDescription("Total number of builds that reported errors"),
		metric.WithUnit("{build}"),
	)

	m.BuildDuration, _ = meter.Float64Histogram(
		"frontbuild.builds.duration",
		metric.WithDescription("Wall time of each build"),
		metric.WithUnit("ms"),
	)

	m.OutputBytes, _ = meter.Int64Counter(
		"frontbuild.outputs.bytes",
		metric.WithDescription("Bytes written to the output directory"),
		metric.WithUnit("By"),
	)

	m.ModulesLoadedTotal, _ = meter.Int64Counter(
		"frontbuild.modules.loaded.total",
		metric.WithDescription("Modules loaded through a rule"),
		metric.WithUnit("{module}"),
	)

	m.CompressedFilesTotal, _ = meter.Int64Counter(
		"frontbuild.compress.files.total",
		metric.WithDescription("Compressed sidecar files written"),
		metric.WithUnit("{file}"),
	)

	m.ActiveWatches, _ = meter.Int64UpDownCounter(
		"frontbuild.watch.active",
		metric.WithDescription("Number of running watch sessions"),
		metric.WithUnit("{session}"),
	)

	return m
}
