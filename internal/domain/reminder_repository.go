package domain

import "context"

//go:generate mockgen -source=reminder_repository.go -destination=reminder_repository_mock.go -package=domain

// ReminderPatch carries a partial update; nil fields are left unchanged.
type ReminderPatch struct {
	Name         *string
	Time         *string
	Frequency    *Frequency
	SelectedDays *string
	IsActive     *bool
}

type ReminderRepository interface {
	// ListActive returns every reminder with IsActive set, across all users.
	ListActive(ctx context.Context) ([]Reminder, error)
	ListByUser(ctx context.Context, userID int64) ([]Reminder, error)
	Get(ctx context.Context, userID, reminderID int64) (*Reminder, error)
	Create(ctx context.Context, reminder *Reminder) error
	Update(ctx context.Context, userID, reminderID int64, patch ReminderPatch) (*Reminder, error)
	Toggle(ctx context.Context, userID, reminderID int64) (*Reminder, error)
	Delete(ctx context.Context, userID, reminderID int64) error
}
