package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const schedulerTracerName = "github.com/glowzel/reminder-dispatcher/internal/service/scheduler"

func SchedulerTracer() trace.Tracer {
	return otel.Tracer(schedulerTracerName)
}

func StartCycleSpan(ctx context.Context, runID string, at time.Time) (context.Context, trace.Span) {
	return SchedulerTracer().Start(ctx, "scheduler.cycle",
		trace.WithAttributes(
			attribute.String("cycle.run_id", runID),
			attribute.String("cycle.at", at.Format(time.RFC3339)),
		),
	)
}

func StartDeliverSpan(ctx context.Context, reminderID, userID int64, frequency string) (context.Context, trace.Span) {
	return SchedulerTracer().Start(ctx, "scheduler.deliver",
		trace.WithAttributes(
			attribute.Int64("reminder.id", reminderID),
			attribute.Int64("reminder.user_id", userID),
			attribute.String("reminder.frequency", frequency),
		),
	)
}

func StartExternalAPISpan(ctx context.Context, operation, target string) (context.Context, trace.Span) {
	return SchedulerTracer().Start(ctx, "push.external_api."+operation,
		trace.WithAttributes(
			attribute.String("target", target),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func RecordCycleResult(span trace.Span, evaluated, due, sent, skipped, suppressed, failed int, err error) {
	span.SetAttributes(
		attribute.Int("cycle.evaluated_count", evaluated),
		attribute.Int("cycle.due_count", due),
		attribute.Int("cycle.sent_count", sent),
		attribute.Int("cycle.skipped_count", skipped),
		attribute.Int("cycle.suppressed_count", suppressed),
		attribute.Int("cycle.failed_count", failed),
	)
	RecordResult(span, err)
}

func RecordDeliverResult(span trace.Span, stage, outcome string, err error) {
	span.SetAttributes(
		attribute.String("deliver.stage", stage),
		attribute.String("deliver.outcome", outcome),
	)
	RecordResult(span, err)
}

func RecordResult(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}
