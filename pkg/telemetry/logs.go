package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// InitLogs returns an slog handler shipping records over OTLP gRPC when
// OTEL_EXPORTER_OTLP_ENDPOINT is set. The handler is nil when log export is disabled.
func InitLogs(ctx context.Context, clusterName string) (slog.Handler, func(context.Context) error, error) {
	noop := func(ctx context.Context) error { return nil }
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		return nil, noop, nil
	}

	exporter, err := otlploggrpc.New(ctx)
	if err != nil {
		return nil, noop, fmt.Errorf("creating OTLP log exporter: %w", err)
	}
	res, err := newResource(clusterName)
	if err != nil {
		return nil, noop, err
	}

	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	)
	return NewLogHandler(lp), lp.Shutdown, nil
}

// NewLogHandler bridges slog records to the given OTel LoggerProvider.
func NewLogHandler(lp *sdklog.LoggerProvider) slog.Handler {
	return otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(lp))
}
