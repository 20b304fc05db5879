package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/mock/gomock"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
	"github.com/glowzel/reminder-dispatcher/internal/service/scheduler"
)

type fakeRunner struct {
	gotAt   time.Time
	summary *scheduler.Summary
	err     error
	status  scheduler.Status
}

func (f *fakeRunner) RunCycleAt(_ context.Context, at time.Time) (*scheduler.Summary, error) {
	f.gotAt = at
	return f.summary, f.err
}

func (f *fakeRunner) Status() scheduler.Status {
	return f.status
}

var fixedNow = time.Date(2025, 9, 17, 22, 0, 30, 0, time.UTC)

func newSchedulerRouter(runner CycleRunner, fired domain.FiredRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewSchedulerHandler(runner, fired, domain.FixedClock(fixedNow))
	r.POST("/api/v1/scheduler/run", h.HandleRun)
	r.GET("/api/v1/scheduler/status", h.HandleStatus)
	return r
}

func TestSchedulerHandler_Run(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		err        error
		wantStatus int
		wantAt     time.Time
	}{
		{name: "uses clock", wantStatus: http.StatusOK, wantAt: fixedNow},
		{name: "virtual instant", query: "?at=2025-09-20T08:00:00Z", wantStatus: http.StatusOK, wantAt: time.Date(2025, 9, 20, 8, 0, 0, 0, time.UTC)},
		{name: "bad instant", query: "?at=tomorrow", wantStatus: http.StatusBadRequest},
		{name: "store down", err: domain.WrapStoreError("list active reminders", errors.New("refused")), wantStatus: http.StatusServiceUnavailable, wantAt: fixedNow},
		{name: "unexpected error", err: errors.New("matcher panic recovered"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{
				summary: &scheduler.Summary{RunID: "run-1", Evaluated: 3, Due: 1, Sent: 1},
				err:     tt.err,
			}

			w, env := doJSON(t, newSchedulerRouter(runner, nil), http.MethodPost, "/api/v1/scheduler/run"+tt.query, nil)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantAt.IsZero() {
				return
			}
			if !runner.gotAt.Equal(tt.wantAt) {
				t.Errorf("RunCycleAt(at) = %v, want %v", runner.gotAt, tt.wantAt)
			}

			var summary scheduler.Summary
			if err := json.Unmarshal(env.Data, &summary); err != nil {
				t.Fatalf("data: %v", err)
			}
			if summary.RunID != "run-1" || summary.Sent != 1 {
				t.Errorf("summary = %+v", summary)
			}
		})
	}
}

func TestSchedulerHandler_Status(t *testing.T) {
	runner := &fakeRunner{status: scheduler.Status{State: scheduler.StateRunning, Interval: time.Minute}}

	t.Run("with watermark store", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		fired := domain.NewMockFiredRepository(ctrl)
		fired.EXPECT().GetSentCount(gomock.Any(), "2025-09-17-22-00").Return(4, nil)

		w, env := doJSON(t, newSchedulerRouter(runner, fired), http.MethodGet, "/api/v1/scheduler/status", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}

		var got statusResponse
		if err := json.Unmarshal(env.Data, &got); err != nil {
			t.Fatalf("data: %v", err)
		}
		if got.State != scheduler.StateRunning || got.Interval != "1m0s" {
			t.Errorf("status = %+v", got)
		}
		if got.SentThisMinute == nil || *got.SentThisMinute != 4 {
			t.Errorf("sent_this_minute = %v, want 4", got.SentThisMinute)
		}
	})

	t.Run("sent count failure is not fatal", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		fired := domain.NewMockFiredRepository(ctrl)
		fired.EXPECT().GetSentCount(gomock.Any(), gomock.Any()).Return(0, errors.New("redis down"))

		w, env := doJSON(t, newSchedulerRouter(runner, fired), http.MethodGet, "/api/v1/scheduler/status", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}

		var got statusResponse
		if err := json.Unmarshal(env.Data, &got); err != nil {
			t.Fatalf("data: %v", err)
		}
		if got.SentThisMinute != nil {
			t.Errorf("sent_this_minute = %d, want omitted", *got.SentThisMinute)
		}
	})
}
