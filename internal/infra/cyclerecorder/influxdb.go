//go:build !gcloud

package cyclerecorder

import (
	"context"
	"log/slog"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
)

const cycleMeasurement = "reminder_cycle"

// pointWriter is the subset of api.WriteAPIBlocking the recorder needs.
type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
	Flush(ctx context.Context) error
}

type influxDBRecorder struct {
	client   influxdb2.Client
	writeAPI pointWriter
	bucket   string
	org      string
}

func NewRecorder(ctx context.Context, cfg *Config) (domain.CycleRecorder, error) {
	if cfg.Disabled {
		slog.InfoContext(ctx, "cycle result recording disabled")
		return NewNoopRecorder(), nil
	}

	if cfg.InfluxDBToken == "" || cfg.InfluxDBOrg == "" {
		slog.WarnContext(ctx, "InfluxDB token or org not configured, cycle result recording disabled",
			slog.String("url", cfg.InfluxDBURL),
		)
		return NewNoopRecorder(), nil
	}

	client := influxdb2.NewClient(cfg.InfluxDBURL, cfg.InfluxDBToken)
	writeAPI := client.WriteAPIBlocking(cfg.InfluxDBOrg, cfg.InfluxDBBucket)

	slog.InfoContext(ctx, "cycle result recorder initialized",
		slog.String("type", "influxdb"),
		slog.String("url", cfg.InfluxDBURL),
		slog.String("bucket", cfg.InfluxDBBucket),
	)

	return &influxDBRecorder{
		client:   client,
		writeAPI: writeAPI,
		bucket:   cfg.InfluxDBBucket,
		org:      cfg.InfluxDBOrg,
	}, nil
}

func newCyclePoint(record domain.CycleRecord) *write.Point {
	runID := record.RunID
	if runID == "" {
		runID = "default"
	}

	// Keyed by the cycle's evaluation instant; a manual rerun of the same
	// minute gets its own run_id tag instead of overwriting.
	return influxdb2.NewPoint(
		cycleMeasurement,
		map[string]string{
			"run_id":       runID,
			"minute_key":   record.MinuteKey,
			"fetch_failed": boolTag(record.FetchFailed),
		},
		map[string]any{
			"evaluated":     record.Evaluated,
			"due":           record.Due,
			"sent":          record.Sent,
			"skipped":       record.Skipped,
			"suppressed":    record.Suppressed,
			"failed":        record.Failed,
			"duration_msec": record.DurationMsec,
		},
		record.At,
	)
}

func boolTag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// RecordCycle never fails the caller; write errors are logged.
func (r *influxDBRecorder) RecordCycle(ctx context.Context, record domain.CycleRecord) error {
	if err := r.writeAPI.WritePoint(ctx, newCyclePoint(record)); err != nil {
		slog.WarnContext(ctx, "failed to write cycle result to InfluxDB",
			slog.String("error", err.Error()),
			slog.String("run_id", record.RunID),
			slog.String("minute_key", record.MinuteKey),
		)
	}
	return nil
}

func (r *influxDBRecorder) Flush(ctx context.Context) error {
	return r.writeAPI.Flush(ctx)
}

func (r *influxDBRecorder) Close() error {
	if r.client != nil {
		r.client.Close()
	}
	return nil
}
