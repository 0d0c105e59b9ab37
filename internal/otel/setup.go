package otel

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// ShutdownFunc flushes and stops the installed providers
type ShutdownFunc func(ctx context.Context) error

// Setup installs the default slog logger. With TELEMETRY set, logs, traces
// and metrics are exported over OTLP; otherwise logs go to w as text. A
// signal whose OTEL_<SIGNAL>_EXPORTER is "none" is skipped, and logs then
// stay on w.
func Setup(ctx context.Context, service, version string, w io.Writer) (ShutdownFunc, error) {
	slog.SetDefault(NewTextLogger(w))

	if !EnableTelemetry {
		return func(context.Context) error { return nil }, nil
	}

	resource, err := newResource(ctx, service, version)

	if err != nil {
		return nil, err
	}

	var shutdowns []ShutdownFunc

	shutdown := func(ctx context.Context) error {
		var result error

		for _, fn := range shutdowns {
			result = errors.Join(result, fn(ctx))
		}

		return result
	}

	if exported(signalTraces) {
		tracer, err := setupTracer(ctx, resource)

		if err != nil {
			return nil, err
		}

		shutdowns = append(shutdowns, tracer.Shutdown)
	}

	if exported(signalMetrics) {
		meter, err := setupMeter(ctx, resource)

		if err != nil {
			return nil, errors.Join(err, shutdown(ctx))
		}

		shutdowns = append(shutdowns, meter.Shutdown)
	}

	if exported(signalLogs) {
		logger, err := setupLogger(ctx, resource)

		if err != nil {
			return nil, errors.Join(err, shutdown(ctx))
		}

		shutdowns = append(shutdowns, logger.Shutdown)
	}

	return shutdown, nil
}
