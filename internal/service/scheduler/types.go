package scheduler

import (
	"time"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
)

const (
	DefaultInterval          = time.Minute
	DefaultConcurrency       = 4
	DefaultDeliveryTimeout   = 10 * time.Second
	DefaultNotificationTitle = "Glowzel Reminder"
)

type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
)

// Stage is the step of the per-reminder pipeline an outcome was decided at.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageMatch   Stage = "match"
	StageClaim   Stage = "claim"
	StageLookup  Stage = "lookup"
	StageDeliver Stage = "deliver"
)

type Outcome string

const (
	OutcomeSent       Outcome = "sent"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeSuppressed Outcome = "suppressed"
	OutcomeFailed     Outcome = "failed"
)

type Options struct {
	Interval time.Duration
	// AlignToMinute makes each wait end on the next interval boundary instead
	// of Interval after the cycle started.
	AlignToMinute     bool
	Concurrency       int
	DeliveryTimeout   time.Duration
	NotificationTitle string
	// RelayedDelivery means the gateway only enqueues a task. The relay
	// callback counts what was actually pushed, so the cycle does not.
	RelayedDelivery bool
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.DeliveryTimeout <= 0 {
		o.DeliveryTimeout = DefaultDeliveryTimeout
	}
	if o.NotificationTitle == "" {
		o.NotificationTitle = DefaultNotificationTitle
	}
	return o
}

type ResultItem struct {
	ReminderID int64                    `json:"reminder_id"`
	UserID     int64                    `json:"user_id"`
	Frequency  domain.Frequency         `json:"frequency"`
	Stage      Stage                    `json:"stage"`
	Outcome    Outcome                  `json:"outcome"`
	Reason     string                   `json:"reason,omitempty"`
	Error      string                   `json:"error,omitempty"`
	ErrorKind  domain.DeliveryErrorKind `json:"error_kind,omitempty"`
}

// Summary aggregates one poll cycle. Results only holds reminders that were
// due or could not be evaluated.
type Summary struct {
	RunID      string       `json:"run_id"`
	MinuteKey  string       `json:"minute_key"`
	At         time.Time    `json:"at"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Evaluated  int          `json:"evaluated"`
	Due        int          `json:"due"`
	Sent       int          `json:"sent"`
	Skipped    int          `json:"skipped"`
	Suppressed int          `json:"suppressed"`
	Failed     int          `json:"failed"`
	FetchError string       `json:"fetch_error,omitempty"`
	Results    []ResultItem `json:"results"`
}

func (s *Summary) add(item ResultItem) {
	switch item.Outcome {
	case OutcomeSent:
		s.Sent++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeSuppressed:
		s.Suppressed++
	case OutcomeFailed:
		s.Failed++
	}
	s.Results = append(s.Results, item)
}

func (s *Summary) record() domain.CycleRecord {
	return domain.CycleRecord{
		RunID:        s.RunID,
		MinuteKey:    s.MinuteKey,
		At:           s.At,
		Evaluated:    s.Evaluated,
		Due:          s.Due,
		Sent:         s.Sent,
		Skipped:      s.Skipped,
		Suppressed:   s.Suppressed,
		Failed:       s.Failed,
		FetchFailed:  s.FetchError != "",
		DurationMsec: s.FinishedAt.Sub(s.StartedAt).Milliseconds(),
	}
}

type Status struct {
	State       State         `json:"state"`
	Interval    time.Duration `json:"interval"`
	LastSummary *Summary      `json:"last_summary,omitempty"`
}
