package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "socialgraph"

// Tracer is the tracer every span in the service starts from.
var Tracer trace.Tracer = otel.Tracer(serviceName)

// TracingConfig selects whether and where spans are exported.
type TracingConfig struct {
	Enabled     bool
	Version     string
	Environment string
	// Endpoint is an OTLP/HTTP collector address; empty prints spans to stdout.
	Endpoint    string
	SampleRatio float64
}

// InitTracing installs the global tracer provider and propagator. The returned
// function flushes and stops the provider.
func InitTracing(ctx context.Context, cfg TracingConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	// Create the exporter: OTLP/HTTP to a collector, or stdout in development
	exporter, err := newExporter(ctx, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracing exporter: %w", err)
	}

	// Describe this service so spans group by name, version and environment
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(cfg.Version),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// Batch spans in the background; Shutdown flushes what is left
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(cfg.SampleRatio)),
	)
	otel.SetTracerProvider(tp)
	// W3C trace context plus baggage, matching what TracingMiddleware extracts
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	Tracer = tp.Tracer(serviceName)

	return tp.Shutdown, nil
}

// newExporter picks the span exporter for endpoint. The collector is reached
// over plain HTTP.
func newExporter(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
	if endpoint == "" {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	return otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
}

// samplerFor samples everything at ratio >= 1 (or unset) and otherwise
// follows the parent's decision.
func samplerFor(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// Span is one traced engine or request step.
type Span struct {
	span trace.Span
}

// NewSpan starts a span from Tracer and returns it with the derived context.
func NewSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (*Span, context.Context) {
	ctx, span := Tracer.Start(ctx, name, opts...)
	return &Span{span: span}, ctx
}

// AddAttributes sets attributes on the span.
func (s *Span) AddAttributes(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
}

// Fail records an operation outcome code. Only server-side failures mark the
// span as errored; rejected requests are normal outcomes.
func (s *Span) Fail(code string, err error, serverSide bool) {
	s.span.SetAttributes(attribute.String("outcome.code", code))
	if err == nil {
		return
	}
	s.span.RecordError(err)
	if serverSide {
		s.span.SetStatus(codes.Error, code)
	}
}

// End ends the span. Call it exactly once, usually deferred.
func (s *Span) End() {
	s.span.End()
}
