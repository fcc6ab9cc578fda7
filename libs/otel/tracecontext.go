package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// TraceState is the W3C trace context in the form it is persisted next to
// an outbox row.
type TraceState struct {
	Traceparent string
	Tracestate  string
}

func (s TraceState) Empty() bool {
	return s.Traceparent == "" && s.Tracestate == ""
}

// Capture serializes the span context of ctx with the global propagator.
func Capture(ctx context.Context) TraceState {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return TraceState{Traceparent: carrier["traceparent"], Tracestate: carrier["tracestate"]}
}

// Restore returns ctx carrying the captured span context as its remote parent.
func (s TraceState) Restore(ctx context.Context) context.Context {
	if s.Empty() {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier{
		"traceparent": s.Traceparent,
		"tracestate":  s.Tracestate,
	})
}
