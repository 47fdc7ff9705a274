package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// WithAttrs returns a metric.MeasurementOption from attribute key-value pairs.
func WithAttrs(attrs ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(attrs...)
}

// InitMeterProvider installs a global MeterProvider exporting over OTLP gRPC when
// OTEL_EXPORTER_OTLP_ENDPOINT is set. Otherwise the global noop provider stays in place.
func InitMeterProvider(ctx context.Context, clusterName string) (func(context.Context) error, error) {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		slog.Info("telemetry: metrics disabled (OTEL_EXPORTER_OTLP_ENDPOINT not set)")
		return func(ctx context.Context) error { return nil }, nil
	}

	exporter, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP metric exporter: %w", err)
	}
	res, err := newResource(clusterName)
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	slog.Info("telemetry: metrics enabled", "endpoint", endpoint)
	return mp.Shutdown, nil
}

// Meters holds pre-created OTel metric instruments for MCP server instrumentation.
type Meters struct {
	// GenAI semantic convention metrics
	RequestDuration metric.Float64Histogram
	RequestCount    metric.Int64Counter

	// Custom domain metrics
	FindingsTotal metric.Int64Counter
	ErrorsTotal   metric.Int64Counter
	VerdictsTotal metric.Int64Counter
	DenialsTotal  metric.Int64Counter
}

// NewMeters creates all OTel metric instruments on the global MeterProvider.
func NewMeters() (*Meters, error) {
	return NewMetersFrom(otel.GetMeterProvider())
}

// NewMetersFrom creates all OTel metric instruments on provider.
func NewMetersFrom(provider metric.MeterProvider) (*Meters, error) {
	meter := provider.Meter(ServiceName)

	requestDuration, err := meter.Float64Histogram(
		"gen_ai.server.request.duration",
		metric.WithDescription("Duration of MCP tool call execution in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestCount, err := meter.Int64Counter(
		"gen_ai.server.request.count",
		metric.WithDescription("Number of MCP tool call requests"),
	)
	if err != nil {
		return nil, err
	}

	findingsTotal, err := meter.Int64Counter(
		"mcp.findings.total",
		metric.WithDescription("Total diagnostic findings emitted"),
	)
	if err != nil {
		return nil, err
	}

	errorsTotal, err := meter.Int64Counter(
		"mcp.errors.total",
		metric.WithDescription("Total tool execution errors"),
	)
	if err != nil {
		return nil, err
	}

	verdictsTotal, err := meter.Int64Counter(
		"health.verdicts.total",
		metric.WithDescription("Problematic pods and nodes reported by the health classifiers"),
	)
	if err != nil {
		return nil, err
	}

	denialsTotal, err := meter.Int64Counter(
		"guard.denials.total",
		metric.WithDescription("Commands rejected by the safety filter"),
	)
	if err != nil {
		return nil, err
	}

	return &Meters{
		RequestDuration: requestDuration,
		RequestCount:    requestCount,
		FindingsTotal:   findingsTotal,
		ErrorsTotal:     errorsTotal,
		VerdictsTotal:   verdictsTotal,
		DenialsTotal:    denialsTotal,
	}, nil
}
