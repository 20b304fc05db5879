package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Frequency is how often a reminder recurs.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

func (f Frequency) String() string {
	return string(f)
}

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	default:
		return false
	}
}

// Reminder is a user-defined recurring alert.
//
// Time is a wall-clock "HH:MM" string. SelectedDays is kept exactly as stored
// ("1,3,5") so that a malformed value is only discovered, and isolated, when a
// single reminder is evaluated.
type Reminder struct {
	ID           int64
	UserID       int64
	Name         string
	Time         string
	Frequency    Frequency
	SelectedDays string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ParseSelectedDays parses a comma-separated list of integers.
// A blank string yields an empty set.
func ParseSelectedDays(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	days := make([]int, 0, len(parts))
	for _, part := range parts {
		day, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformedSelectedDays, raw)
		}
		days = append(days, day)
	}

	return days, nil
}

// ValidateTimeOfDay reports whether value is a zero-padded 24h "HH:MM".
func ValidateTimeOfDay(value string) error {
	if len(value) != 5 || value[2] != ':' {
		return fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}
	if _, err := time.Parse("15:04", value); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}
	return nil
}

// ValidateSelectedDays checks the day set against the range the frequency uses.
// It is stricter than matching: the API rejects values the matcher would
// silently never fire on.
func ValidateSelectedDays(frequency Frequency, raw string) error {
	days, err := ParseSelectedDays(raw)
	if err != nil {
		return err
	}

	var upper int
	switch frequency {
	case FrequencyDaily:
		return nil
	case FrequencyWeekly:
		upper = 7
	case FrequencyMonthly:
		upper = 31
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, frequency)
	}

	if len(days) == 0 {
		return fmt.Errorf("%w: %s reminders need at least one day", ErrMalformedSelectedDays, frequency)
	}
	for _, d := range days {
		if d < 1 || d > upper {
			return fmt.Errorf("%w: day %d out of range 1..%d", ErrMalformedSelectedDays, d, upper)
		}
	}
	return nil
}
