package domain

import "context"

//go:generate mockgen -source=fired_repository.go -destination=fired_repository_mock.go -package=domain

// FiredRepository records which (reminder, minute) pairs have been dispatched.
type FiredRepository interface {
	// Claim marks the pair as fired. It returns false if it was already claimed.
	Claim(ctx context.Context, reminderID int64, minuteKey string) (bool, error)
	Release(ctx context.Context, reminderID int64, minuteKey string) error
	IncrementSentCount(ctx context.Context, minuteKey string, delta int) error
	GetSentCount(ctx context.Context, minuteKey string) (int, error)
}
