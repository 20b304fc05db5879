package domain

//go:generate mockgen -source=cycle_recorder.go -destination=cycle_recorder_mock.go -package=domain

import (
	"context"
	"time"
)

type CycleRecord struct {
	RunID        string
	MinuteKey    string
	At           time.Time
	Evaluated    int
	Due          int
	Sent         int
	Skipped      int
	Suppressed   int
	Failed       int
	FetchFailed  bool
	DurationMsec int64
}

type CycleRecorder interface {
	RecordCycle(ctx context.Context, record CycleRecord) error
	Flush(ctx context.Context) error
	Close() error
}
