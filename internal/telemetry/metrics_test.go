package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestInitMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m := initMetrics(provider.Meter(InstrumentationName))
	ctx := context.Background()

	m.BuildsTotal.Add(ctx, 2)
	m.OutputBytes.Add(ctx, 1024)
	m.BuildDuration.Record(ctx, 12.5)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics[0].Metrics {
		names[sm.Name] = true
	}
	require.True(t, names["frontbuild.builds.total"])
	require.True(t, names["frontbuild.outputs.bytes"])
	require.True(t, names["frontbuild.builds.duration"])
}

func TestGetMetrics(t *testing.T) {
	m := GetMetrics()
	require.NotNil(t, m)
	require.Same(t, m, GetMetrics())
	require.NotNil(t, m.BuildsTotal)
	require.NotNil(t, Tracer())
}
