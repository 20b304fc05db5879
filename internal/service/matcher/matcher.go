package matcher

import (
	"fmt"
	"slices"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
)

// Matcher decides whether a reminder fires at a given instant.
// It has no state and never touches the store.
type Matcher struct{}

func NewMatcher() *Matcher {
	return &Matcher{}
}

// IsDue compares the reminder's "HH:MM" literally against the instant, so it
// fires only during the one minute whose wall clock equals its time.
//
// An error is returned only for a selected_days value that cannot be parsed.
// Callers treat that reminder as not due and move on.
func (m *Matcher) IsDue(reminder domain.Reminder, now domain.Instant) (bool, error) {
	if reminder.Time != now.TimeOfDay {
		return false, nil
	}

	var target int
	switch reminder.Frequency {
	case domain.FrequencyDaily:
		return true, nil
	case domain.FrequencyWeekly:
		target = now.Weekday
	case domain.FrequencyMonthly:
		target = now.DayOfMonth
	default:
		// unknown frequency fails closed
		return false, nil
	}

	days, err := domain.ParseSelectedDays(reminder.SelectedDays)
	if err != nil {
		return false, fmt.Errorf("reminder %d: %w", reminder.ID, err)
	}

	return slices.Contains(days, target), nil
}
