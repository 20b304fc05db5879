package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	reminderMeterName = "reminder.scheduler"
)

type ReminderMetrics struct {
	cyclesTotal      metric.Int64Counter
	remindersTotal   metric.Int64Counter
	outcomesTotal    metric.Int64Counter
	cycleDuration    metric.Float64Histogram
	deliveryDuration metric.Float64Histogram
}

func NewReminderMetrics() (*ReminderMetrics, error) {
	meter := otel.Meter(reminderMeterName)

	cyclesTotal, err := meter.Int64Counter(
		"reminder_poll_cycles_total",
		metric.WithDescription("Total number of poll cycles"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, err
	}

	remindersTotal, err := meter.Int64Counter(
		"reminder_evaluated_total",
		metric.WithDescription("Total number of active reminders evaluated"),
		metric.WithUnit("{reminder}"),
	)
	if err != nil {
		return nil, err
	}

	outcomesTotal, err := meter.Int64Counter(
		"reminder_outcomes_total",
		metric.WithDescription("Reminder outcomes by stage"),
		metric.WithUnit("{reminder}"),
	)
	if err != nil {
		return nil, err
	}

	cycleDuration, err := meter.Float64Histogram(
		"reminder_poll_cycle_duration_seconds",
		metric.WithDescription("Poll cycle duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
		),
	)
	if err != nil {
		return nil, err
	}

	deliveryDuration, err := meter.Float64Histogram(
		"reminder_delivery_duration_seconds",
		metric.WithDescription("Push gateway call duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
		),
	)
	if err != nil {
		return nil, err
	}

	return &ReminderMetrics{
		cyclesTotal:      cyclesTotal,
		remindersTotal:   remindersTotal,
		outcomesTotal:    outcomesTotal,
		cycleDuration:    cycleDuration,
		deliveryDuration: deliveryDuration,
	}, nil
}

func (m *ReminderMetrics) RecordCycle(ctx context.Context, result string, evaluated int, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("result", result))
	m.cyclesTotal.Add(ctx, 1, attrs)
	m.remindersTotal.Add(ctx, int64(evaluated))
	m.cycleDuration.Record(ctx, duration.Seconds(), attrs)
}

func (m *ReminderMetrics) RecordOutcome(ctx context.Context, stage, outcome, frequency string) {
	m.outcomesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("outcome", outcome),
		attribute.String("frequency", frequency),
	))
}

func (m *ReminderMetrics) RecordDeliveryDuration(ctx context.Context, outcome string, duration time.Duration) {
	m.deliveryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}
