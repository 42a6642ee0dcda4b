package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"dairy-service/internal/config"
)

const instrumentationName = "dairy-service"

// Telemetry is the error-reporting sink. Services report failures and
// notable state changes here without knowing whether anything is exported.
type Telemetry interface {
	CaptureException(ctx context.Context, err error, attrs ...attribute.KeyValue)
	CaptureMessage(ctx context.Context, msg string, attrs ...attribute.KeyValue)
	Shutdown(ctx context.Context) error
}

// New returns the OpenTelemetry-backed implementation when cfg.Enabled is
// set and the logging-only null object otherwise.
func New(ctx context.Context, cfg config.Telemetry, env string, log *zap.SugaredLogger) (Telemetry, error) {
	if !cfg.Enabled {
		return NewNop(log), nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			attribute.String("deployment.environment", env),
		),
	)
	if err != nil {
		return nil, err
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Exporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s exporter: %w", cfg.Exporter, err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return newOTel(tp, log), nil
}

type otelTelemetry struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	log      *zap.SugaredLogger
}

func newOTel(tp *sdktrace.TracerProvider, log *zap.SugaredLogger) *otelTelemetry {
	return &otelTelemetry{
		provider: tp,
		tracer:   tp.Tracer(instrumentationName),
		log:      log,
	}
}

func (t *otelTelemetry) CaptureException(ctx context.Context, err error, attrs ...attribute.KeyValue) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		_, span = t.tracer.Start(ctx, "exception")
		defer span.End()
	}
	span.RecordError(err, trace.WithAttributes(attrs...), trace.WithStackTrace(true))
	span.SetStatus(codes.Error, err.Error())

	t.log.Errorw("exception captured", append(logFields(attrs), "err", err)...)
}

func (t *otelTelemetry) CaptureMessage(ctx context.Context, msg string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		_, span = t.tracer.Start(ctx, msg)
		defer span.End()
	}
	span.AddEvent(msg, trace.WithAttributes(attrs...))
}

func (t *otelTelemetry) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}

type nopTelemetry struct {
	log *zap.SugaredLogger
}

func NewNop(log *zap.SugaredLogger) Telemetry {
	return &nopTelemetry{log: log}
}

func (n *nopTelemetry) CaptureException(_ context.Context, err error, attrs ...attribute.KeyValue) {
	if err == nil {
		return
	}
	n.log.Warnw("exception not exported (telemetry disabled)", append(logFields(attrs), "err", err)...)
}

func (n *nopTelemetry) CaptureMessage(_ context.Context, msg string, attrs ...attribute.KeyValue) {
	n.log.Debugw("message not exported (telemetry disabled): "+msg, logFields(attrs)...)
}

func (n *nopTelemetry) Shutdown(context.Context) error {
	return nil
}

func logFields(attrs []attribute.KeyValue) []interface{} {
	fields := make([]interface{}, 0, len(attrs)*2)
	for _, a := range attrs {
		fields = append(fields, string(a.Key), a.Value.Emit())
	}
	return fields
}
