package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ProbeSpan wraps the client span around one outbound probe call.
type ProbeSpan struct {
	span  trace.Span
	start time.Time
}

// StartProbeSpan opens a client span for a probe against model. The tracer
// comes from the global provider, so this works whether or not InitTracing
// ran.
func StartProbeSpan(ctx context.Context, probe, model string) (context.Context, *ProbeSpan) {
	tracer := otel.Tracer(TracerName)

	ctx, span := tracer.Start(ctx, "probe."+probe,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("probe.name", probe),
			attribute.String("gen_ai.system", "openai"),
			attribute.String("gen_ai.request.model", model),
		),
	)
	return ctx, &ProbeSpan{span: span, start: time.Now()}
}

// Succeed closes the span with an OK status.
func (s *ProbeSpan) Succeed(attrs ...attribute.KeyValue) time.Duration {
	s.span.SetAttributes(attrs...)
	s.span.SetAttributes(attribute.Bool("probe.success", true))
	s.span.SetStatus(codes.Ok, "")
	return s.end()
}

// Fail records err with its failure kind and closes the span.
func (s *ProbeSpan) Fail(kind string, err error) time.Duration {
	s.span.RecordError(err)
	s.span.SetAttributes(
		attribute.Bool("probe.success", false),
		attribute.String("probe.failure_kind", kind),
	)
	s.span.SetStatus(codes.Error, kind)
	return s.end()
}

func (s *ProbeSpan) end() time.Duration {
	s.span.End()
	return time.Since(s.start)
}
