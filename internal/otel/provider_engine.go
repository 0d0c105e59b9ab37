package otel

import (
	"context"
	"time"

	"github.com/emmett/lens/internal/ocr"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type Engine interface {
	Observable
	ocr.Engine
}

type observableEngine struct {
	name   string
	engine ocr.Engine
}

// NewEngine wraps e so every recognition produces a span and run metrics
func NewEngine(e ocr.Engine) Engine {
	return &observableEngine{
		name:   e.Name(),
		engine: e,
	}
}

func (e *observableEngine) otelSetup() {
}

func (e *observableEngine) Name() string {
	return e.name
}

func (e *observableEngine) Available(ctx context.Context) bool {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "probe "+e.name)
	defer span.End()

	ok := e.engine.Available(ctx)
	span.SetAttributes(Bool("ocr.available", ok))

	return ok
}

func (e *observableEngine) Recognize(ctx context.Context, image string, settings ocr.Settings) ocr.Outcome {
	attrs := []KeyValue{
		String("ocr.engine", e.name),
		Strings("ocr.languages", ocr.SplitLanguages(settings.Languages)),
		String("ocr.decoder", settings.Decoder.String()),
		Bool("ocr.paragraph", settings.Paragraph),
		Bool("ocr.gpu", settings.GPU),
	}

	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "recognize "+e.name, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	outcome := e.engine.Recognize(ctx, image, settings)
	elapsed := time.Since(start)

	status := "ok"
	if outcome.Err != nil {
		status = string(outcome.Err.Code)
		span.SetStatus(codes.Error, status)
	}

	span.SetAttributes(
		Int("ocr.records", len(outcome.Records)),
		String("ocr.status", status),
	)

	e.record(ctx, elapsed, KeyValues(attrs[:1], []KeyValue{String("ocr.status", status)}))

	return outcome
}

func (e *observableEngine) record(ctx context.Context, elapsed time.Duration, attrs []KeyValue) {
	meter := otel.Meter(instrumentationName)

	if counter, err := meter.Int64Counter("ocr.recognitions",
		metric.WithDescription("Number of recognition runs"),
	); err == nil {
		counter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	if histogram, err := meter.Float64Histogram("ocr.recognition.duration",
		metric.WithDescription("Duration of recognition runs"),
		metric.WithUnit("s"),
	); err == nil {
		histogram.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
	}
}
