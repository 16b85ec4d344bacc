package monitoring

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "hostcp"

// Tracer wraps the global otel tracer provider so navigation execution
// and exploration phases emit spans without every caller importing
// otel directly.
type Tracer struct {
	tracer trace.Tracer
}

func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(tracerName)}
}

// StartNavigationSpan wraps one background ExecuteNavigation run.
func (t *Tracer) StartNavigationSpan(ctx context.Context, executionID, deviceID, treeID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "navigation.execute",
		trace.WithAttributes(
			attribute.String("execution_id", executionID),
			attribute.String("device_id", deviceID),
			attribute.String("tree_id", treeID),
		))
}

// StartExplorationSpan wraps one exploration phase transition.
func (t *Tracer) StartExplorationSpan(ctx context.Context, explorationID, deviceID, phase string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "exploration."+phase,
		trace.WithAttributes(
			attribute.String("exploration_id", explorationID),
			attribute.String("device_id", deviceID),
		))
}

// RecordStep adds one navigation/exploration step as a span event
// rather than a separate child span, keeping high-frequency per-edge
// steps cheap.
func RecordStep(span trace.Span, nodeID, actionSetID string, success bool) {
	span.AddEvent("step", trace.WithAttributes(
		attribute.String("node_id", nodeID),
		attribute.String("action_set_id", actionSetID),
		attribute.Bool("success", success),
	))
}

// End finalises a span, marking it as an error span when err != nil.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
