package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/mock/gomock"
	"golang.org/x/time/rate"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
)

// 2025-09-17 is a Wednesday (ISO weekday 3).
var wednesday2200 = time.Date(2025, 9, 17, 22, 0, 12, 0, time.UTC)

type mocks struct {
	reminders *domain.MockReminderRepository
	devices   *domain.MockDeviceDirectory
	gateway   *domain.MockPushGateway
	fired     *domain.MockFiredRepository
}

func newMocks(ctrl *gomock.Controller) mocks {
	return mocks{
		reminders: domain.NewMockReminderRepository(ctrl),
		devices:   domain.NewMockDeviceDirectory(ctrl),
		gateway:   domain.NewMockPushGateway(ctrl),
		fired:     domain.NewMockFiredRepository(ctrl),
	}
}

// createTestScheduler builds a scheduler without the watermark store.
func createTestScheduler(m mocks, opts Options) *Scheduler {
	return NewScheduler(m.reminders, m.devices, m.gateway, nil, nil, nil, nil, domain.FixedClock(wednesday2200), opts)
}

func TestRunCycleAt_DispatchesDueReminders(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := newMocks(ctrl)
	s := createTestScheduler(m, Options{})

	reminders := []domain.Reminder{
		{ID: 1, UserID: 10, Name: "Night cream", Time: "22:00", Frequency: domain.FrequencyWeekly, SelectedDays: "1,3,5", IsActive: true},
		{ID: 2, UserID: 20, Name: "Sunscreen", Time: "08:00", Frequency: domain.FrequencyDaily, IsActive: true},
		{ID: 3, UserID: 30, Name: "Mask", Time: "22:00", Frequency: domain.FrequencyWeekly, SelectedDays: "2", IsActive: true},
		{ID: 4, UserID: 40, Name: "Peel", Time: "22:00", Frequency: domain.FrequencyMonthly, SelectedDays: "17", IsActive: true},
	}

	m.reminders.EXPECT().ListActive(gomock.Any()).Return(reminders, nil)
	m.devices.EXPECT().DeviceToken(gomock.Any(), int64(10)).Return("token-10", true, nil)
	m.devices.EXPECT().DeviceToken(gomock.Any(), int64(40)).Return("token-40", true, nil)

	m.gateway.EXPECT().
		Send(gomock.Any(), "token-10", gomock.Any()).
		DoAndReturn(func(ctx context.Context, token string, msg domain.PushMessage) error {
			if msg.Title != DefaultNotificationTitle {
				t.Errorf("Title = %q, want %q", msg.Title, DefaultNotificationTitle)
			}
			if msg.Body != "Time for: Night cream" {
				t.Errorf("Body = %q, want %q", msg.Body, "Time for: Night cream")
			}
			if msg.Data["reminder_id"] != "1" {
				t.Errorf("Data[reminder_id] = %q, want %q", msg.Data["reminder_id"], "1")
			}
			if _, ok := ctx.Deadline(); !ok {
				t.Error("delivery context should carry a deadline")
			}
			return nil
		})
	m.gateway.EXPECT().Send(gomock.Any(), "token-40", gomock.Any()).Return(nil)

	summary, err := s.RunCycleAt(context.Background(), wednesday2200)
	if err != nil {
		t.Fatalf("RunCycleAt() unexpected error: %v", err)
	}

	if summary.Evaluated != 4 {
		t.Errorf("Evaluated = %d, want 4", summary.Evaluated)
	}
	if summary.Due != 2 {
		t.Errorf("Due = %d, want 2", summary.Due)
	}
	if summary.Sent != 2 {
		t.Errorf("Sent = %d, want 2", summary.Sent)
	}
	if summary.Failed != 0 || summary.Skipped != 0 {
		t.Errorf("Failed = %d, Skipped = %d, want 0, 0", summary.Failed, summary.Skipped)
	}
	if summary.MinuteKey != "2025-09-17-22-00" {
		t.Errorf("MinuteKey = %q, want %q", summary.MinuteKey, "2025-09-17-22-00")
	}
	if len(summary.Results) != 2 || summary.Results[0].ReminderID != 1 || summary.Results[1].ReminderID != 4 {
		t.Errorf("Results = %+v, want reminders 1 and 4 in order", summary.Results)
	}
}

func TestRunCycleAt_MalformedSelectedDaysIsIsolated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := newMocks(ctrl)
	s := createTestScheduler(m, Options{})

	reminders := []domain.Reminder{
		{ID: 1, UserID: 10, Name: "Broken", Time: "22:00", Frequency: domain.FrequencyWeekly, SelectedDays: "a,b"},
		{ID: 2, UserID: 20, Name: "Toner", Time: "22:00", Frequency: domain.FrequencyDaily},
	}

	m.reminders.EXPECT().ListActive(gomock.Any()).Return(reminders, nil)
	m.devices.EXPECT().DeviceToken(gomock.Any(), int64(20)).Return("token-20", true, nil)
	m.gateway.EXPECT().Send(gomock.Any(), "token-20", gomock.Any()).Return(nil)

	summary, err := s.RunCycleAt(context.Background(), wednesday2200)
	if err != nil {
		t.Fatalf("RunCycleAt() unexpected error: %v", err)
	}

	if summary.Due != 1 || summary.Sent != 1 {
		t.Errorf("Due = %d, Sent = %d, want 1, 1", summary.Due, summary.Sent)
	}
	if summary.Failed != 1 {
		t.Fatalf("Failed = %d, want 1", summary.Failed)
	}

	var matchFailure *ResultItem
	for i := range summary.Results {
		if summary.Results[i].Stage == StageMatch {
			matchFailure = &summary.Results[i]
		}
	}
	if matchFailure == nil || matchFailure.ReminderID != 1 || matchFailure.Outcome != OutcomeFailed {
		t.Errorf("match failure item = %+v, want reminder 1 failed at match", matchFailure)
	}
}

func TestRunCycleAt_PerReminderFailuresAreIsolated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := newMocks(ctrl)
	s := createTestScheduler(m, Options{Concurrency: 2})

	reminders := []domain.Reminder{
		{ID: 1, UserID: 10, Name: "A", Time: "22:00", Frequency: domain.FrequencyDaily},
		{ID: 2, UserID: 20, Name: "B", Time: "22:00", Frequency: domain.FrequencyDaily},
		{ID: 3, UserID: 30, Name: "C", Time: "22:00", Frequency: domain.FrequencyDaily},
		{ID: 4, UserID: 40, Name: "D", Time: "22:00", Frequency: domain.FrequencyDaily},
	}

	m.reminders.EXPECT().ListActive(gomock.Any()).Return(reminders, nil)
	m.devices.EXPECT().DeviceToken(gomock.Any(), int64(10)).Return("", false, domain.WrapStoreError("device token", errors.New("connection reset")))
	m.devices.EXPECT().DeviceToken(gomock.Any(), int64(20)).Return("token-20", true, nil)
	m.devices.EXPECT().DeviceToken(gomock.Any(), int64(30)).Return("token-30", true, nil)
	m.devices.EXPECT().DeviceToken(gomock.Any(), int64(40)).Return("token-40", true, nil)

	m.gateway.EXPECT().Send(gomock.Any(), "token-20", gomock.Any()).
		Return(domain.NewInvalidTokenError("token-20", errors.New("unregistered")))
	m.gateway.EXPECT().Send(gomock.Any(), "token-30", gomock.Any()).
		Return(domain.NewTransientDeliveryError("token-30", errors.New("unavailable")))
	m.gateway.EXPECT().Send(gomock.Any(), "token-40", gomock.Any()).Return(nil)

	summary, err := s.RunCycleAt(context.Background(), wednesday2200)
	if err != nil {
		t.Fatalf("RunCycleAt() unexpected error: %v", err)
	}

	if summary.Due != 4 {
		t.Errorf("Due = %d, want 4", summary.Due)
	}
	if summary.Sent != 1 {
		t.Errorf("Sent = %d, want 1", summary.Sent)
	}
	if summary.Failed != 3 {
		t.Errorf("Failed = %d, want 3", summary.Failed)
	}

	wantStage := map[int64]Stage{1: StageLookup, 2: StageDeliver, 3: StageDeliver, 4: StageDeliver}
	wantKind := map[int64]domain.DeliveryErrorKind{2: domain.DeliveryErrorInvalidToken, 3: domain.DeliveryErrorTransient}
	for _, item := range summary.Results {
		if item.Stage != wantStage[item.ReminderID] {
			t.Errorf("reminder %d: Stage = %s, want %s", item.ReminderID, item.Stage, wantStage[item.ReminderID])
		}
		if item.ErrorKind != wantKind[item.ReminderID] {
			t.Errorf("reminder %d: ErrorKind = %q, want %q", item.ReminderID, item.ErrorKind, wantKind[item.ReminderID])
		}
	}
}

func TestRunCycleAt_NoDeviceTokenIsSkipped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := newMocks(ctrl)
	s := createTestScheduler(m, Options{})

	m.reminders.EXPECT().ListActive(gomock.Any()).Return([]domain.Reminder{
		{ID: 1, UserID: 10, Name: "Serum", Time: "22:00", Frequency: domain.FrequencyDaily},
	}, nil)
	m.devices.EXPECT().DeviceToken(gomock.Any(), int64(10)).Return("", false, nil)
	m.gateway.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	summary, err := s.RunCycleAt(context.Background(), wednesday2200)
	if err != nil {
		t.Fatalf("RunCycleAt() unexpected error: %v", err)
	}

	if summary.Skipped != 1 || summary.Failed != 0 || summary.Sent != 0 {
		t.Errorf("Skipped = %d, Failed = %d, Sent = %d, want 1, 0, 0", summary.Skipped, summary.Failed, summary.Sent)
	}
	if got := summary.Results[0]; got.Error != "" || got.Reason != "no device token" {
		t.Errorf("result = %+v, want skip reason without error", got)
	}
}

func TestRunCycleAt_FetchError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := newMocks(ctrl)
	s := createTestScheduler(m, Options{})

	storeErr := domain.WrapStoreError("list active reminders", errors.New("dial tcp: connection refused"))
	m.reminders.EXPECT().ListActive(gomock.Any()).Return(nil, storeErr)

	summary, err := s.RunCycleAt(context.Background(), wednesday2200)
	if !errors.Is(err, domain.ErrStore) {
		t.Fatalf("RunCycleAt() error = %v, want ErrStore", err)
	}
	if summary == nil || summary.FetchError == "" {
		t.Fatalf("summary = %+v, want FetchError set", summary)
	}
	if summary.Evaluated != 0 {
		t.Errorf("Evaluated = %d, want 0", summary.Evaluated)
	}
	if s.Status().LastSummary != summary {
		t.Error("Status().LastSummary should hold the failed cycle")
	}
}

func TestRunCycleAt_Watermark(t *testing.T) {
	reminder := domain.Reminder{ID: 7, UserID: 70, Name: "Retinol", Time: "22:00", Frequency: domain.FrequencyDaily}
	const minuteKey = "2025-09-17-22-00"

	tests := []struct {
		name        string
		opts        Options
		setup       func(m mocks)
		wantOutcome Outcome
		wantStage   Stage
	}{
		{
			name: "already claimed is suppressed",
			setup: func(m mocks) {
				m.fired.EXPECT().Claim(gomock.Any(), int64(7), minuteKey).Return(false, nil)
			},
			wantOutcome: OutcomeSuppressed,
			wantStage:   StageClaim,
		},
		{
			name: "claim then send increments the sent count",
			setup: func(m mocks) {
				m.fired.EXPECT().Claim(gomock.Any(), int64(7), minuteKey).Return(true, nil)
				m.devices.EXPECT().DeviceToken(gomock.Any(), int64(70)).Return("token-70", true, nil)
				m.gateway.EXPECT().Send(gomock.Any(), "token-70", gomock.Any()).Return(nil)
				m.fired.EXPECT().IncrementSentCount(gomock.Any(), minuteKey, 1).Return(nil)
			},
			wantOutcome: OutcomeSent,
			wantStage:   StageDeliver,
		},
		{
			name: "relayed send leaves counting to the relay callback",
			opts: Options{RelayedDelivery: true},
			setup: func(m mocks) {
				m.fired.EXPECT().Claim(gomock.Any(), int64(7), minuteKey).Return(true, nil)
				m.devices.EXPECT().DeviceToken(gomock.Any(), int64(70)).Return("token-70", true, nil)
				m.gateway.EXPECT().Send(gomock.Any(), "token-70", gomock.Any()).Return(nil)
				m.fired.EXPECT().IncrementSentCount(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantOutcome: OutcomeSent,
			wantStage:   StageDeliver,
		},
		{
			name: "claim error dispatches anyway",
			setup: func(m mocks) {
				m.fired.EXPECT().Claim(gomock.Any(), int64(7), minuteKey).Return(false, errors.New("redis down"))
				m.devices.EXPECT().DeviceToken(gomock.Any(), int64(70)).Return("token-70", true, nil)
				m.gateway.EXPECT().Send(gomock.Any(), "token-70", gomock.Any()).Return(nil)
				m.fired.EXPECT().IncrementSentCount(gomock.Any(), minuteKey, 1).Return(errors.New("redis down"))
			},
			wantOutcome: OutcomeSent,
			wantStage:   StageDeliver,
		},
		{
			name: "delivery failure releases the claim",
			setup: func(m mocks) {
				m.fired.EXPECT().Claim(gomock.Any(), int64(7), minuteKey).Return(true, nil)
				m.devices.EXPECT().DeviceToken(gomock.Any(), int64(70)).Return("token-70", true, nil)
				m.gateway.EXPECT().Send(gomock.Any(), "token-70", gomock.Any()).
					Return(domain.NewTransientDeliveryError("token-70", errors.New("timeout")))
				m.fired.EXPECT().Release(gomock.Any(), int64(7), minuteKey).Return(nil)
			},
			wantOutcome: OutcomeFailed,
			wantStage:   StageDeliver,
		},
		{
			name: "lookup failure releases the claim",
			setup: func(m mocks) {
				m.fired.EXPECT().Claim(gomock.Any(), int64(7), minuteKey).Return(true, nil)
				m.devices.EXPECT().DeviceToken(gomock.Any(), int64(70)).Return("", false, errors.New("db down"))
				m.fired.EXPECT().Release(gomock.Any(), int64(7), minuteKey).Return(nil)
			},
			wantOutcome: OutcomeFailed,
			wantStage:   StageLookup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			m := newMocks(ctrl)
			m.reminders.EXPECT().ListActive(gomock.Any()).Return([]domain.Reminder{reminder}, nil)
			tt.setup(m)

			s := NewScheduler(m.reminders, m.devices, m.gateway, m.fired, nil, nil, nil, domain.FixedClock(wednesday2200), tt.opts)

			summary, err := s.RunCycleAt(context.Background(), wednesday2200)
			if err != nil {
				t.Fatalf("RunCycleAt() unexpected error: %v", err)
			}
			if len(summary.Results) != 1 {
				t.Fatalf("len(Results) = %d, want 1", len(summary.Results))
			}

			got := summary.Results[0]
			if got.Outcome != tt.wantOutcome || got.Stage != tt.wantStage {
				t.Errorf("result = %s@%s, want %s@%s", got.Outcome, got.Stage, tt.wantOutcome, tt.wantStage)
			}
		})
	}
}

func TestRunCycleAt_DeliveryTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := newMocks(ctrl)
	const minuteKey = "2025-09-17-22-00"

	m.reminders.EXPECT().ListActive(gomock.Any()).Return([]domain.Reminder{
		{ID: 5, UserID: 50, Name: "Eye cream", Time: "22:00", Frequency: domain.FrequencyDaily},
	}, nil)
	m.fired.EXPECT().Claim(gomock.Any(), int64(5), minuteKey).Return(true, nil)
	m.devices.EXPECT().DeviceToken(gomock.Any(), int64(50)).Return("token-50", true, nil)
	m.gateway.EXPECT().
		Send(gomock.Any(), "token-50", gomock.Any()).
		DoAndReturn(func(ctx context.Context, token string, _ domain.PushMessage) error {
			<-ctx.Done()
			return domain.NewTransientDeliveryError(token, ctx.Err())
		})
	m.fired.EXPECT().Release(gomock.Any(), int64(5), minuteKey).Return(nil)

	s := NewScheduler(m.reminders, m.devices, m.gateway, m.fired, nil, nil, nil,
		domain.FixedClock(wednesday2200), Options{DeliveryTimeout: 50 * time.Millisecond})

	started := time.Now()
	summary, err := s.RunCycleAt(context.Background(), wednesday2200)
	elapsed := time.Since(started)
	if err != nil {
		t.Fatalf("RunCycleAt() unexpected error: %v", err)
	}

	if elapsed < 50*time.Millisecond || elapsed > time.Second {
		t.Errorf("cycle took %v, want about the 50ms delivery timeout", elapsed)
	}
	if summary.Failed != 1 || summary.Sent != 0 {
		t.Errorf("Failed = %d, Sent = %d, want 1, 0", summary.Failed, summary.Sent)
	}
	if got := summary.Results[0]; got.Stage != StageDeliver || got.ErrorKind != domain.DeliveryErrorTransient {
		t.Errorf("result = %+v, want transient failure at deliver", got)
	}
}

func TestRunCycleAt_RateLimiter(t *testing.T) {
	const minuteKey = "2025-09-17-22-00"
	reminders := []domain.Reminder{
		{ID: 1, UserID: 10, Name: "Toner", Time: "22:00", Frequency: domain.FrequencyDaily},
		{ID: 2, UserID: 20, Name: "Serum", Time: "22:00", Frequency: domain.FrequencyDaily},
	}

	tests := []struct {
		name       string
		limiter    *rate.Limiter
		setup      func(m mocks)
		wantSent   int
		wantFailed int
	}{
		{
			name:    "wait beyond the delivery timeout fails fast and releases the claim",
			limiter: rate.NewLimiter(rate.Every(time.Hour), 1),
			setup: func(m mocks) {
				m.fired.EXPECT().Claim(gomock.Any(), int64(1), minuteKey).Return(true, nil)
				m.devices.EXPECT().DeviceToken(gomock.Any(), int64(10)).Return("token-10", true, nil)
				m.gateway.EXPECT().Send(gomock.Any(), "token-10", gomock.Any()).Return(nil)
				m.fired.EXPECT().IncrementSentCount(gomock.Any(), minuteKey, 1).Return(nil)

				m.fired.EXPECT().Claim(gomock.Any(), int64(2), minuteKey).Return(true, nil)
				m.devices.EXPECT().DeviceToken(gomock.Any(), int64(20)).Return("token-20", true, nil)
				m.fired.EXPECT().Release(gomock.Any(), int64(2), minuteKey).Return(nil)
			},
			wantSent:   1,
			wantFailed: 1,
		},
		{
			name:    "zero burst rejects every wait",
			limiter: rate.NewLimiter(rate.Limit(10), 0),
			setup: func(m mocks) {
				for _, r := range reminders {
					m.fired.EXPECT().Claim(gomock.Any(), r.ID, minuteKey).Return(true, nil)
					m.devices.EXPECT().DeviceToken(gomock.Any(), r.UserID).Return("token", true, nil)
					m.fired.EXPECT().Release(gomock.Any(), r.ID, minuteKey).Return(nil)
				}
				m.gateway.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantSent:   0,
			wantFailed: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			m := newMocks(ctrl)
			m.reminders.EXPECT().ListActive(gomock.Any()).Return(reminders, nil)
			tt.setup(m)

			s := NewScheduler(m.reminders, m.devices, m.gateway, m.fired, nil, nil, tt.limiter,
				domain.FixedClock(wednesday2200), Options{Concurrency: 1, DeliveryTimeout: 50 * time.Millisecond})

			started := time.Now()
			summary, err := s.RunCycleAt(context.Background(), wednesday2200)
			if err != nil {
				t.Fatalf("RunCycleAt() unexpected error: %v", err)
			}
			if elapsed := time.Since(started); elapsed > time.Second {
				t.Errorf("cycle took %v, want the limiter wait bounded by the delivery timeout", elapsed)
			}

			if summary.Sent != tt.wantSent || summary.Failed != tt.wantFailed {
				t.Errorf("Sent = %d, Failed = %d, want %d, %d", summary.Sent, summary.Failed, tt.wantSent, tt.wantFailed)
			}
			for _, item := range summary.Results {
				if item.Outcome != OutcomeFailed {
					continue
				}
				if item.Stage != StageDeliver || item.ErrorKind != domain.DeliveryErrorTransient {
					t.Errorf("reminder %d: result = %s@%s kind %q, want failed@deliver transient",
						item.ReminderID, item.Outcome, item.Stage, item.ErrorKind)
				}
			}
		})
	}
}

func TestRunCycleAt_RecordsCycle(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := newMocks(ctrl)
	recorder := domain.NewMockCycleRecorder(ctrl)

	m.reminders.EXPECT().ListActive(gomock.Any()).Return([]domain.Reminder{}, nil)
	recorder.EXPECT().
		RecordCycle(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, record domain.CycleRecord) error {
			if record.MinuteKey != "2025-09-17-22-00" {
				t.Errorf("MinuteKey = %q, want %q", record.MinuteKey, "2025-09-17-22-00")
			}
			if record.RunID == "" {
				t.Error("RunID should be set")
			}
			return errors.New("influx unavailable")
		})

	s := NewScheduler(m.reminders, m.devices, m.gateway, nil, recorder, nil, nil, domain.FixedClock(wednesday2200), Options{})

	if _, err := s.RunCycleAt(context.Background(), wednesday2200); err != nil {
		t.Fatalf("RunCycleAt() unexpected error: %v", err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestScheduler_Lifecycle(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := newMocks(ctrl)

	var calls atomic.Int32
	m.reminders.EXPECT().
		ListActive(gomock.Any()).
		DoAndReturn(func(context.Context) ([]domain.Reminder, error) {
			calls.Add(1)
			return nil, domain.WrapStoreError("list active reminders", errors.New("connection refused"))
		}).
		AnyTimes()

	s := createTestScheduler(m, Options{Interval: 20 * time.Millisecond})
	ctx := context.Background()

	if s.Running() {
		t.Fatal("new scheduler should be stopped")
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop() on stopped scheduler = %v, want nil", err)
	}

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Start() error = %v, want ErrAlreadyRunning", err)
	}

	// store errors never stop the loop; it retries on the next tick
	waitFor(t, 2*time.Second, func() bool { return calls.Load() >= 3 })
	if !s.Running() {
		t.Fatal("scheduler should keep running after fetch errors")
	}
	if got := s.Status(); got.State != StateRunning || got.LastSummary == nil || got.LastSummary.FetchError == "" {
		t.Errorf("Status() = %+v, want running with a failed last summary", got)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if s.Running() {
		t.Fatal("scheduler should be stopped after Stop")
	}

	afterStop := calls.Load()
	time.Sleep(80 * time.Millisecond)
	if got := calls.Load(); got != afterStop {
		t.Errorf("ListActive called %d times after Stop, want 0", got-afterStop)
	}

	// restart runs exactly one loop again
	if err := s.Start(ctx); err != nil {
		t.Fatalf("restart Start() error = %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return calls.Load() > afterStop })
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
	if s.Status().State != StateStopped {
		t.Errorf("State = %s, want stopped", s.Status().State)
	}
}

func TestScheduler_SingleLoopAfterRestart(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := newMocks(ctrl)

	var inFlight, maxInFlight atomic.Int32
	m.reminders.EXPECT().
		ListActive(gomock.Any()).
		DoAndReturn(func(context.Context) ([]domain.Reminder, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				cur := maxInFlight.Load()
				if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			return nil, nil
		}).
		AnyTimes()

	s := createTestScheduler(m, Options{Interval: 5 * time.Millisecond})
	ctx := context.Background()

	for range 5 {
		if err := s.Start(ctx); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		time.Sleep(15 * time.Millisecond)
		if err := s.Stop(ctx); err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
	}

	if got := maxInFlight.Load(); got != 1 {
		t.Errorf("max concurrent cycles = %d, want 1", got)
	}
}

func TestScheduler_StopsWhenParentContextCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := newMocks(ctrl)
	m.reminders.EXPECT().ListActive(gomock.Any()).Return(nil, nil).AnyTimes()

	s := createTestScheduler(m, Options{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()

	waitFor(t, time.Second, func() bool { return !s.Running() })
}

// steppingClock is a clock tests move forward by hand.
type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *steppingClock) set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func TestScheduler_AlignedLoopPollsMinuteCrossedByCycle(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := newMocks(ctrl)
	clock := &steppingClock{now: time.Date(2025, 9, 17, 10, 0, 59, 950_000_000, time.UTC)}
	reminder := domain.Reminder{ID: 1, UserID: 10, Name: "Vitamin C", Time: "10:01", Frequency: domain.FrequencyDaily}

	var cycles atomic.Int32
	m.reminders.EXPECT().
		ListActive(gomock.Any()).
		DoAndReturn(func(context.Context) ([]domain.Reminder, error) {
			// the first query runs across the 10:01 boundary
			if cycles.Add(1) == 1 {
				clock.set(time.Date(2025, 9, 17, 10, 1, 0, 50_000_000, time.UTC))
			}
			return []domain.Reminder{reminder}, nil
		}).
		AnyTimes()

	sent := make(chan struct{}, 1)
	m.devices.EXPECT().DeviceToken(gomock.Any(), int64(10)).Return("token-10", true, nil)
	m.gateway.EXPECT().
		Send(gomock.Any(), "token-10", gomock.Any()).
		DoAndReturn(func(context.Context, string, domain.PushMessage) error {
			sent <- struct{}{}
			return nil
		})

	s := NewScheduler(m.reminders, m.devices, m.gateway, nil, nil, nil, nil, clock,
		Options{Interval: time.Minute, AlignToMinute: true})

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case <-sent:
	case <-time.After(2 * time.Second):
		t.Error("10:01 reminder was never sent")
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if got := cycles.Load(); got != 2 {
		t.Errorf("cycles = %d, want 2 (10:00 and 10:01)", got)
	}
}

func TestNextAlignedWait(t *testing.T) {
	at := func(minute, sec, nsec int) time.Time {
		return time.Date(2025, 1, 1, 8, minute, sec, nsec, time.UTC)
	}

	tests := []struct {
		name     string
		cycleAt  time.Time
		now      time.Time
		interval time.Duration
		want     time.Duration
	}{
		{
			name:     "mid minute",
			cycleAt:  at(0, 15, 0),
			now:      at(0, 15, 0),
			interval: time.Minute,
			want:     45 * time.Second,
		},
		{
			name:     "exactly on the boundary waits a full interval",
			cycleAt:  at(0, 0, 0),
			now:      at(0, 0, 0),
			interval: time.Minute,
			want:     time.Minute,
		},
		{
			name:     "cycle time is subtracted",
			cycleAt:  at(0, 0, 0),
			now:      at(0, 2, 0),
			interval: time.Minute,
			want:     58 * time.Second,
		},
		{
			name:     "just before the boundary",
			cycleAt:  at(0, 59, 900_000_000),
			now:      at(0, 59, 900_000_000),
			interval: time.Minute,
			want:     100 * time.Millisecond,
		},
		{
			name:     "cycle crossed the boundary runs again at once",
			cycleAt:  at(0, 59, 950_000_000),
			now:      at(1, 0, 50_000_000),
			interval: time.Minute,
			want:     0,
		},
		{
			name:     "overrun of several minutes runs again at once",
			cycleAt:  at(0, 10, 0),
			now:      at(3, 30, 0),
			interval: time.Minute,
			want:     0,
		},
		{
			name:     "five minute interval",
			cycleAt:  at(3, 0, 0),
			now:      at(3, 0, 0),
			interval: 5 * time.Minute,
			want:     2 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextAlignedWait(tt.cycleAt, tt.now, tt.interval); got != tt.want {
				t.Errorf("nextAlignedWait() = %v, want %v", got, tt.want)
			}
		})
	}
}
