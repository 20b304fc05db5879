package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
	"github.com/glowzel/reminder-dispatcher/internal/service/scheduler"
)

// CycleRunner is the part of *scheduler.Scheduler the operations API uses.
type CycleRunner interface {
	RunCycleAt(ctx context.Context, at time.Time) (*scheduler.Summary, error)
	Status() scheduler.Status
}

type SchedulerHandler struct {
	scheduler CycleRunner
	fired     domain.FiredRepository
	clock     domain.Clock
}

// NewSchedulerHandler builds the handler. fired may be nil when the
// watermark store is disabled.
func NewSchedulerHandler(runner CycleRunner, fired domain.FiredRepository, clock domain.Clock) *SchedulerHandler {
	return &SchedulerHandler{
		scheduler: runner,
		fired:     fired,
		clock:     clock,
	}
}

type statusResponse struct {
	State          scheduler.State    `json:"state"`
	Interval       string             `json:"interval"`
	MinuteKey      string             `json:"minute_key"`
	SentThisMinute *int               `json:"sent_this_minute,omitempty"`
	LastSummary    *scheduler.Summary `json:"last_summary,omitempty"`
}

// HandleRun runs one poll cycle synchronously. The optional "at" query
// (RFC3339) evaluates a virtual instant instead of the clock.
func (h *SchedulerHandler) HandleRun(c *gin.Context) {
	ctx := c.Request.Context()

	at := h.clock.Now()
	if atStr := c.Query("at"); atStr != "" {
		parsed, err := time.Parse(time.RFC3339, atStr)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid at time format, expected RFC3339")
			return
		}
		at = parsed.In(at.Location())
		slog.InfoContext(ctx, "using virtual time",
			slog.Time("virtual_now", at),
		)
	}

	summary, err := h.scheduler.RunCycleAt(ctx, at)
	if err != nil {
		if errors.Is(err, domain.ErrStore) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"message": "reminder store unavailable",
				"data":    summary,
			})
			return
		}
		slog.ErrorContext(ctx, "poll cycle failed",
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusInternalServerError, "poll cycle failed")
		return
	}

	respondSuccess(c, http.StatusOK, "Poll cycle completed", summary)
}

func (h *SchedulerHandler) HandleStatus(c *gin.Context) {
	ctx := c.Request.Context()

	status := h.scheduler.Status()
	minuteKey := domain.MinuteKey(h.clock.Now())

	resp := statusResponse{
		State:       status.State,
		Interval:    status.Interval.String(),
		MinuteKey:   minuteKey,
		LastSummary: status.LastSummary,
	}

	if h.fired != nil {
		count, err := h.fired.GetSentCount(ctx, minuteKey)
		if err != nil {
			slog.WarnContext(ctx, "failed to read sent count",
				slog.String("minute_key", minuteKey),
				slog.String("error", err.Error()),
			)
		} else {
			resp.SentThisMinute = &count
		}
	}

	respondSuccess(c, http.StatusOK, "Scheduler status", resp)
}
