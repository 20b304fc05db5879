//go:build gcloud

package cyclerecorder

import (
	"context"
	"log/slog"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
)

type bigQueryRecord struct {
	RecordedAt   time.Time `bigquery:"recorded_at"`
	EvaluatedAt  time.Time `bigquery:"evaluated_at"`
	RunID        string    `bigquery:"run_id"`
	MinuteKey    string    `bigquery:"minute_key"`
	Evaluated    int64     `bigquery:"evaluated"`
	Due          int64     `bigquery:"due"`
	Sent         int64     `bigquery:"sent"`
	Skipped      int64     `bigquery:"skipped"`
	Suppressed   int64     `bigquery:"suppressed"`
	Failed       int64     `bigquery:"failed"`
	FetchFailed  bool      `bigquery:"fetch_failed"`
	DurationMsec int64     `bigquery:"duration_msec"`
}

type bigQueryRecorder struct {
	client   *bigquery.Client
	inserter *bigquery.Inserter
	dataset  string
	table    string
}

func NewRecorder(ctx context.Context, cfg *Config) (domain.CycleRecorder, error) {
	if cfg.Disabled {
		slog.InfoContext(ctx, "cycle result recording disabled")
		return NewNoopRecorder(), nil
	}

	if cfg.BigQueryProjectID == "" {
		slog.WarnContext(ctx, "BigQuery project ID not configured, cycle result recording disabled")
		return NewNoopRecorder(), nil
	}

	client, err := bigquery.NewClient(ctx, cfg.BigQueryProjectID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create BigQuery client, cycle result recording disabled",
			slog.String("error", err.Error()),
			slog.String("project_id", cfg.BigQueryProjectID),
		)
		return NewNoopRecorder(), nil
	}

	table := client.Dataset(cfg.BigQueryDataset).Table(cfg.BigQueryTable)

	slog.InfoContext(ctx, "cycle result recorder initialized",
		slog.String("type", "bigquery"),
		slog.String("project_id", cfg.BigQueryProjectID),
		slog.String("dataset", cfg.BigQueryDataset),
		slog.String("table", cfg.BigQueryTable),
	)

	return &bigQueryRecorder{
		client:   client,
		inserter: table.Inserter(),
		dataset:  cfg.BigQueryDataset,
		table:    cfg.BigQueryTable,
	}, nil
}

func (r *bigQueryRecorder) RecordCycle(ctx context.Context, record domain.CycleRecord) error {
	row := &bigQueryRecord{
		RecordedAt:   time.Now(),
		EvaluatedAt:  record.At,
		RunID:        record.RunID,
		MinuteKey:    record.MinuteKey,
		Evaluated:    int64(record.Evaluated),
		Due:          int64(record.Due),
		Sent:         int64(record.Sent),
		Skipped:      int64(record.Skipped),
		Suppressed:   int64(record.Suppressed),
		Failed:       int64(record.Failed),
		FetchFailed:  record.FetchFailed,
		DurationMsec: record.DurationMsec,
	}

	if err := r.inserter.Put(ctx, row); err != nil {
		slog.WarnContext(ctx, "failed to insert cycle result to BigQuery",
			slog.String("error", err.Error()),
			slog.String("run_id", record.RunID),
		)
	}

	return nil
}

func (r *bigQueryRecorder) Flush(ctx context.Context) error {
	return nil
}

func (r *bigQueryRecorder) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
