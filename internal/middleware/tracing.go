package middleware

import (
	"fmt"

	"socialgraph/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware adds OpenTelemetry tracing to requests. It continues a
// trace propagated by the caller, opens a server span around the rest of the
// chain and echoes the trace id in X-Trace-ID.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Extract trace context from incoming request headers
		carrier := propagation.HeaderCarrier{}
		for k, v := range c.GetReqHeaders() {
			for _, vv := range v {
				carrier.Set(k, vv)
			}
		}
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), carrier)

		// Start a new span named after the route
		spanName := fmt.Sprintf("%s %s", c.Method(), c.Path())
		ctx, span := observability.Tracer.Start(ctx, spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.path", c.Path()),
				attribute.String("http.ip", c.IP()),
			),
		)
		defer span.End()

		// Add request ID to span if available
		if requestID, ok := c.Locals("requestid").(string); ok {
			span.SetAttributes(attribute.String("request.id", requestID))
		}
		// Add trace ID to response headers for debugging
		c.Set("X-Trace-ID", span.SpanContext().TraceID().String())

		// Store span context in fiber context so handlers and the engine
		// open child spans under it
		c.SetUserContext(ctx)

		err := c.Next()

		// Record response status and error if any
		span.SetAttributes(attribute.Int("http.status_code", c.Response().StatusCode()))
		if err != nil {
			span.RecordError(err)
		}
		// Identity runs after this middleware; the actor is only known now.
		if id, ok := ActorFrom(c).ID(); ok {
			span.SetAttributes(attribute.String("user.id", id))
		}
		return err
	}
}
