package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns the device directory backed by users.device_token.
func NewUserRepository(db *gorm.DB) domain.DeviceDirectory {
	return &userRepository{
		db: db,
	}
}

// DeviceToken reports ok=false both for a missing user and for a user
// without a token. Neither is an error for the caller.
func (r *userRepository) DeviceToken(ctx context.Context, userID int64) (string, bool, error) {
	var model userModel
	err := r.db.WithContext(ctx).
		Select("id", "device_token").
		Where("id = ?", userID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, domain.WrapStoreError("get device token", err)
	}

	if model.DeviceToken == nil || *model.DeviceToken == "" {
		return "", false, nil
	}

	return *model.DeviceToken, true, nil
}

func (r *userRepository) SetDeviceToken(ctx context.Context, userID int64, token string) error {
	return r.updateDeviceToken(ctx, userID, token)
}

func (r *userRepository) ClearDeviceToken(ctx context.Context, userID int64) error {
	return r.updateDeviceToken(ctx, userID, nil)
}

func (r *userRepository) updateDeviceToken(ctx context.Context, userID int64, value any) error {
	res := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id = ?", userID).
		Update("device_token", value)
	if res.Error != nil {
		return domain.WrapStoreError("update device token", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
