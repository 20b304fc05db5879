package domain

import "context"

//go:generate mockgen -source=device_directory.go -destination=device_directory_mock.go -package=domain

type DeviceDirectory interface {
	// DeviceToken returns the push token registered for the user.
	// ok is false when the user has none (or does not exist).
	DeviceToken(ctx context.Context, userID int64) (token string, ok bool, err error)
	SetDeviceToken(ctx context.Context, userID int64, token string) error
	ClearDeviceToken(ctx context.Context, userID int64) error
}
