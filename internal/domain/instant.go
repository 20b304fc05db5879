package domain

import "time"

const minuteKeyLayout = "2006-01-02-15-04"

// Instant is the wall-clock view of a moment that reminders are matched against.
// It is captured once per poll cycle.
type Instant struct {
	At         time.Time
	TimeOfDay  string // "HH:MM"
	Weekday    int    // ISO weekday, 1=Monday .. 7=Sunday
	DayOfMonth int
}

func NewInstant(t time.Time) Instant {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}

	return Instant{
		At:         t,
		TimeOfDay:  t.Format("15:04"),
		Weekday:    weekday,
		DayOfMonth: t.Day(),
	}
}

// MinuteKey identifies the wall-clock minute of the instant.
func (i Instant) MinuteKey() string {
	return MinuteKey(i.At)
}

// MinuteKey formats t in its own location, truncated to the minute.
func MinuteKey(t time.Time) string {
	return t.Truncate(time.Minute).Format(minuteKeyLayout)
}

func ParseMinuteKey(key string) (time.Time, error) {
	return time.Parse(minuteKeyLayout, key)
}

// Clock is the scheduler's time source.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the host clock. A nil Location means host local time.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	now := time.Now()
	if c.Location != nil {
		return now.In(c.Location)
	}
	return now
}

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time {
	return time.Time(c)
}
