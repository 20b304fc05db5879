package cyclerecorder

import (
	"context"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
)

type noopRecorder struct{}

func NewNoopRecorder() domain.CycleRecorder {
	return &noopRecorder{}
}

func (n *noopRecorder) RecordCycle(_ context.Context, _ domain.CycleRecord) error {
	return nil
}

func (n *noopRecorder) Flush(_ context.Context) error {
	return nil
}

func (n *noopRecorder) Close() error {
	return nil
}
