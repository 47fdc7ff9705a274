package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestMeters_RecordToProvider(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewMetersFrom(mp)
	require.NoError(t, err)

	ctx := context.Background()
	m.VerdictsTotal.Add(ctx, 3, WithAttrs(attribute.String("kind", "pod")))
	m.DenialsTotal.Add(ctx, 1, WithAttrs(attribute.String("keyword", "delete")))
	m.RequestCount.Add(ctx, 1)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	assert.Equal(t, ServiceName, rm.ScopeMetrics[0].Scope.Name)

	sums := map[string]int64{}
	for _, md := range rm.ScopeMetrics[0].Metrics {
		if sum, ok := md.Data.(metricdata.Sum[int64]); ok {
			for _, dp := range sum.DataPoints {
				sums[md.Name] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(3), sums["health.verdicts.total"])
	assert.Equal(t, int64(1), sums["guard.denials.total"])
	assert.Equal(t, int64(1), sums["gen_ai.server.request.count"])
}

func TestInit_DisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	ctx := context.Background()

	shutdown, err := InitTracer(ctx, "c")
	require.NoError(t, err)
	assert.NoError(t, shutdown(ctx))

	shutdown, err = InitMeterProvider(ctx, "c")
	require.NoError(t, err)
	assert.NoError(t, shutdown(ctx))

	h, shutdown, err := InitLogs(ctx, "c")
	require.NoError(t, err)
	assert.Nil(t, h)
	assert.NoError(t, shutdown(ctx))
}

type memoryExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *memoryExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *memoryExporter) Shutdown(context.Context) error   { return nil }
func (e *memoryExporter) ForceFlush(context.Context) error { return nil }

func TestNewLogHandler_Bridges(t *testing.T) {
	exp := &memoryExporter{}
	lp := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exp)))

	slog.New(NewLogHandler(lp)).Warn("guard: BLOCKED destructive command", "keyword", "delete")

	exp.mu.Lock()
	defer exp.mu.Unlock()
	require.Len(t, exp.records, 1)
	assert.Equal(t, "guard: BLOCKED destructive command", exp.records[0].Body().AsString())
}
