package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
	"github.com/glowzel/reminder-dispatcher/internal/observability/metrics"
	"github.com/glowzel/reminder-dispatcher/internal/service/matcher"
)

var ErrAlreadyRunning = errors.New("scheduler already running")

// Scheduler polls the reminder store on a fixed cadence and pushes a
// notification for every reminder due in the current minute.
//
// Every instance owns its own loop; several may coexist (tests do this).
type Scheduler struct {
	reminders       domain.ReminderRepository
	devices         domain.DeviceDirectory
	gateway         domain.PushGateway
	fired           domain.FiredRepository
	recorder        domain.CycleRecorder
	matcher         *matcher.Matcher
	reminderMetrics *metrics.ReminderMetrics
	limiter         *rate.Limiter
	clock           domain.Clock
	opts            Options

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	last    *Summary
}

// NewScheduler wires the collaborators. fired, recorder, reminderMetrics and
// limiter are optional and may be nil.
func NewScheduler(
	reminders domain.ReminderRepository,
	devices domain.DeviceDirectory,
	gateway domain.PushGateway,
	fired domain.FiredRepository,
	recorder domain.CycleRecorder,
	reminderMetrics *metrics.ReminderMetrics,
	limiter *rate.Limiter,
	clock domain.Clock,
	opts Options,
) *Scheduler {
	if clock == nil {
		clock = domain.SystemClock{}
	}

	return &Scheduler{
		reminders:       reminders,
		devices:         devices,
		gateway:         gateway,
		fired:           fired,
		recorder:        recorder,
		matcher:         matcher.NewMatcher(),
		reminderMetrics: reminderMetrics,
		limiter:         limiter,
		clock:           clock,
		opts:            opts.withDefaults(),
	}
}

// Start launches the poll loop and returns immediately. The first cycle runs
// right away. Cancelling ctx stops the loop like Stop does.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return ErrAlreadyRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.running.Store(true)

	go s.loop(loopCtx, done)

	slog.InfoContext(ctx, "reminder scheduler started",
		slog.Duration("interval", s.opts.Interval),
		slog.Bool("align_to_minute", s.opts.AlignToMinute),
		slog.Int("concurrency", s.opts.Concurrency),
	)

	return nil
}

// Stop signals the loop and waits for it to exit. A cycle already in flight
// completes first. Stop on a stopped scheduler is a no-op.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running.Load() {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
		slog.InfoContext(ctx, "reminder scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) Running() bool {
	return s.running.Load()
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := StateStopped
	if s.running.Load() {
		state = StateRunning
	}

	return Status{
		State:       state,
		Interval:    s.opts.Interval,
		LastSummary: s.last,
	}
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.running.Store(false)
		s.cancel = nil
		s.mu.Unlock()
		close(done)
	}()

	// deliveries already started are allowed to finish after Stop
	cycleCtx := context.WithoutCancel(ctx)

	for {
		if ctx.Err() != nil {
			return
		}

		started := time.Now()
		at := s.clock.Now()
		if _, err := s.RunCycleAt(cycleCtx, at); err != nil {
			slog.WarnContext(ctx, "poll cycle ended early, retrying on next tick",
				slog.String("error", err.Error()),
			)
		}

		var wait time.Duration
		if s.opts.AlignToMinute {
			wait = nextAlignedWait(at, s.clock.Now(), s.opts.Interval)
		} else {
			wait = max(s.opts.Interval-time.Since(started), 0)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// nextAlignedWait returns the time from now until the interval boundary that
// follows cycleAt. A cycle that ran past that boundary gets zero, so the
// minute it crossed into is still polled.
func nextAlignedWait(cycleAt, now time.Time, interval time.Duration) time.Duration {
	next := cycleAt.Truncate(interval).Add(interval)
	return max(next.Sub(now), 0)
}
