package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
	"github.com/glowzel/reminder-dispatcher/internal/observability/tracing"
)

// RunCycle runs one poll cycle at the clock's current time.
func (s *Scheduler) RunCycle(ctx context.Context) (*Summary, error) {
	return s.RunCycleAt(ctx, s.clock.Now())
}

// RunCycleAt runs one poll cycle as if the wall clock read at.
//
// Per-reminder failures are counted in the summary and never returned.
// The error is non-nil only when the active reminders could not be listed.
func (s *Scheduler) RunCycleAt(ctx context.Context, at time.Time) (*Summary, error) {
	now := domain.NewInstant(at)
	summary := &Summary{
		RunID:     uuid.NewString(),
		MinuteKey: now.MinuteKey(),
		At:        at,
		StartedAt: time.Now(),
		Results:   []ResultItem{},
	}

	ctx, span := tracing.StartCycleSpan(ctx, summary.RunID, at)
	defer span.End()

	reminders, err := s.reminders.ListActive(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to fetch active reminders",
			slog.String("run_id", summary.RunID),
			slog.String("minute_key", summary.MinuteKey),
			slog.String("error", err.Error()),
		)
		summary.FetchError = err.Error()
		s.finish(ctx, summary)
		tracing.RecordCycleResult(span, 0, 0, 0, 0, 0, 0, err)
		return summary, fmt.Errorf("list active reminders: %w", err)
	}

	summary.Evaluated = len(reminders)

	due := make([]domain.Reminder, 0)
	for _, reminder := range reminders {
		isDue, err := s.matcher.IsDue(reminder, now)
		if err != nil {
			slog.WarnContext(ctx, "failed to evaluate reminder",
				slog.Int64("reminder_id", reminder.ID),
				slog.Int64("user_id", reminder.UserID),
				slog.String("selected_days", reminder.SelectedDays),
				slog.String("error", err.Error()),
			)
			item := ResultItem{
				ReminderID: reminder.ID,
				UserID:     reminder.UserID,
				Frequency:  reminder.Frequency,
				Stage:      StageMatch,
				Outcome:    OutcomeFailed,
				Error:      err.Error(),
			}
			s.recordOutcome(ctx, item)
			summary.add(item)
			continue
		}
		if isDue {
			due = append(due, reminder)
		}
	}

	summary.Due = len(due)

	slog.DebugContext(ctx, "evaluated active reminders",
		slog.String("run_id", summary.RunID),
		slog.String("time_of_day", now.TimeOfDay),
		slog.Int("weekday", now.Weekday),
		slog.Int("day_of_month", now.DayOfMonth),
		slog.Int("evaluated_count", summary.Evaluated),
		slog.Int("due_count", summary.Due),
	)

	for _, item := range s.dispatchAll(ctx, due, now) {
		summary.add(item)
	}

	s.finish(ctx, summary)
	tracing.RecordCycleResult(span, summary.Evaluated, summary.Due, summary.Sent,
		summary.Skipped, summary.Suppressed, summary.Failed, nil)

	return summary, nil
}

// dispatchAll delivers due reminders concurrently, at most opts.Concurrency at
// a time. Results keep the order of due.
func (s *Scheduler) dispatchAll(ctx context.Context, due []domain.Reminder, now domain.Instant) []ResultItem {
	results := make([]ResultItem, len(due))
	sem := semaphore.NewWeighted(int64(s.opts.Concurrency))

	var wg sync.WaitGroup
	for i, reminder := range due {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = ResultItem{
				ReminderID: reminder.ID,
				UserID:     reminder.UserID,
				Frequency:  reminder.Frequency,
				Stage:      StageDeliver,
				Outcome:    OutcomeFailed,
				Error:      err.Error(),
			}
			s.recordOutcome(ctx, results[i])
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = s.dispatch(ctx, reminder, now)
		}()
	}
	wg.Wait()

	return results
}

func (s *Scheduler) dispatch(ctx context.Context, reminder domain.Reminder, now domain.Instant) (item ResultItem) {
	ctx, span := tracing.StartDeliverSpan(ctx, reminder.ID, reminder.UserID, reminder.Frequency.String())
	defer span.End()

	item = ResultItem{
		ReminderID: reminder.ID,
		UserID:     reminder.UserID,
		Frequency:  reminder.Frequency,
	}
	defer func() {
		s.recordOutcome(ctx, item)
		var err error
		if item.Error != "" {
			err = errors.New(item.Error)
		}
		tracing.RecordDeliverResult(span, string(item.Stage), string(item.Outcome), err)
	}()

	minuteKey := now.MinuteKey()
	logAttrs := []any{
		slog.Int64("reminder_id", reminder.ID),
		slog.Int64("user_id", reminder.UserID),
		slog.String("minute_key", minuteKey),
	}

	claimed := false
	if s.fired != nil {
		ok, err := s.fired.Claim(ctx, reminder.ID, minuteKey)
		switch {
		case err != nil:
			// without the watermark a duplicate is possible but a miss is not
			slog.WarnContext(ctx, "failed to claim fired watermark, dispatching anyway",
				append(logAttrs, slog.String("error", err.Error()))...,
			)
		case !ok:
			slog.DebugContext(ctx, "reminder already fired this minute", logAttrs...)
			item.Stage = StageClaim
			item.Outcome = OutcomeSuppressed
			item.Reason = "already fired this minute"
			return item
		default:
			claimed = true
		}
	}

	release := func() {
		if !claimed {
			return
		}
		if err := s.fired.Release(ctx, reminder.ID, minuteKey); err != nil {
			slog.WarnContext(ctx, "failed to release fired watermark",
				append(logAttrs, slog.String("error", err.Error()))...,
			)
		}
	}

	token, found, err := s.devices.DeviceToken(ctx, reminder.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to look up device token",
			append(logAttrs, slog.String("error", err.Error()))...,
		)
		release()
		item.Stage = StageLookup
		item.Outcome = OutcomeFailed
		item.Error = err.Error()
		return item
	}
	if !found || token == "" {
		slog.InfoContext(ctx, "skipping reminder without device token", logAttrs...)
		item.Stage = StageLookup
		item.Outcome = OutcomeSkipped
		item.Reason = "no device token"
		return item
	}

	item.Stage = StageDeliver

	if s.limiter != nil {
		// a wait longer than DeliveryTimeout fails fast instead of stalling the cycle
		waitCtx, cancelWait := context.WithTimeout(ctx, s.opts.DeliveryTimeout)
		err := s.limiter.Wait(waitCtx)
		cancelWait()
		if err != nil {
			slog.WarnContext(ctx, "push rate limit wait failed",
				append(logAttrs, slog.String("error", err.Error()))...,
			)
			release()
			item.Outcome = OutcomeFailed
			item.Error = err.Error()
			item.ErrorKind = domain.DeliveryErrorTransient
			return item
		}
	}

	msg := domain.PushMessage{
		Title: s.opts.NotificationTitle,
		Body:  "Time for: " + reminder.Name,
		Data: map[string]string{
			"type":        "reminder",
			"reminder_id": strconv.FormatInt(reminder.ID, 10),
			"minute_key":  minuteKey,
		},
	}

	deliverCtx, cancel := context.WithTimeout(ctx, s.opts.DeliveryTimeout)
	started := time.Now()
	err = s.gateway.Send(deliverCtx, token, msg)
	cancel()

	if err != nil {
		kind := domain.DeliveryKindOf(err)
		slog.ErrorContext(ctx, "failed to deliver reminder",
			append(logAttrs,
				slog.String("error_kind", string(kind)),
				slog.String("error", err.Error()),
			)...,
		)
		release()
		s.recordDeliveryDuration(ctx, OutcomeFailed, time.Since(started))
		item.Outcome = OutcomeFailed
		item.Error = err.Error()
		item.ErrorKind = kind
		return item
	}

	s.recordDeliveryDuration(ctx, OutcomeSent, time.Since(started))
	slog.InfoContext(ctx, "reminder sent", logAttrs...)

	if s.fired != nil && !s.opts.RelayedDelivery {
		if err := s.fired.IncrementSentCount(ctx, minuteKey, 1); err != nil {
			slog.WarnContext(ctx, "failed to increment sent count",
				append(logAttrs, slog.String("error", err.Error()))...,
			)
		}
	}

	item.Outcome = OutcomeSent
	return item
}

func (s *Scheduler) finish(ctx context.Context, summary *Summary) {
	summary.FinishedAt = time.Now()
	duration := summary.FinishedAt.Sub(summary.StartedAt)

	result := "ok"
	if summary.FetchError != "" {
		result = "fetch_failed"
	}

	slog.InfoContext(ctx, "poll cycle completed",
		slog.String("run_id", summary.RunID),
		slog.String("minute_key", summary.MinuteKey),
		slog.String("result", result),
		slog.Int("evaluated", summary.Evaluated),
		slog.Int("due", summary.Due),
		slog.Int("sent", summary.Sent),
		slog.Int("skipped", summary.Skipped),
		slog.Int("suppressed", summary.Suppressed),
		slog.Int("failed", summary.Failed),
		slog.Duration("duration", duration),
	)

	if s.reminderMetrics != nil {
		s.reminderMetrics.RecordCycle(ctx, result, summary.Evaluated, duration)
	}

	if s.recorder != nil {
		if err := s.recorder.RecordCycle(ctx, summary.record()); err != nil {
			slog.WarnContext(ctx, "failed to record cycle summary",
				slog.String("run_id", summary.RunID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.mu.Lock()
	s.last = summary
	s.mu.Unlock()
}

func (s *Scheduler) recordOutcome(ctx context.Context, item ResultItem) {
	if s.reminderMetrics != nil {
		s.reminderMetrics.RecordOutcome(ctx, string(item.Stage), string(item.Outcome), item.Frequency.String())
	}
}

func (s *Scheduler) recordDeliveryDuration(ctx context.Context, outcome Outcome, d time.Duration) {
	if s.reminderMetrics != nil {
		s.reminderMetrics.RecordDeliveryDuration(ctx, string(outcome), d)
	}
}
