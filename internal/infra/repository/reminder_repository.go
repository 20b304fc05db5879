package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
)

type reminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) domain.ReminderRepository {
	return &reminderRepository{
		db: db,
	}
}

func (r *reminderRepository) ListActive(ctx context.Context) ([]domain.Reminder, error) {
	var models []reminderModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id").
		Find(&models).Error; err != nil {
		return nil, domain.WrapStoreError("list active reminders", err)
	}

	return toDomainReminders(models), nil
}

func (r *reminderRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Reminder, error) {
	var models []reminderModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("time, id").
		Find(&models).Error; err != nil {
		return nil, domain.WrapStoreError("list reminders by user", err)
	}

	return toDomainReminders(models), nil
}

func (r *reminderRepository) Get(ctx context.Context, userID, reminderID int64) (*domain.Reminder, error) {
	return getReminder(ctx, r.db, userID, reminderID)
}

func (r *reminderRepository) Create(ctx context.Context, reminder *domain.Reminder) error {
	if reminder == nil || reminder.UserID == 0 {
		return ErrInvalidReminder
	}

	model := newReminderModel(reminder)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return domain.WrapStoreError("create reminder", err)
	}

	*reminder = model.toDomain()
	return nil
}

func (r *reminderRepository) Update(ctx context.Context, userID, reminderID int64, patch domain.ReminderPatch) (*domain.Reminder, error) {
	updates := map[string]any{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Time != nil {
		updates["time"] = *patch.Time
	}
	if patch.Frequency != nil {
		updates["frequency"] = patch.Frequency.String()
	}
	if patch.SelectedDays != nil {
		if *patch.SelectedDays == "" {
			updates["selected_days"] = nil
		} else {
			updates["selected_days"] = *patch.SelectedDays
		}
	}
	if patch.IsActive != nil {
		updates["is_active"] = *patch.IsActive
	}

	var updated *domain.Reminder
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			res := tx.Model(&reminderModel{}).
				Where("id = ? AND user_id = ?", reminderID, userID).
				Updates(updates)
			if res.Error != nil {
				return domain.WrapStoreError("update reminder", res.Error)
			}
			if res.RowsAffected == 0 {
				return domain.ErrReminderNotFound
			}
		}

		var err error
		updated, err = getReminder(ctx, tx, userID, reminderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *reminderRepository) Toggle(ctx context.Context, userID, reminderID int64) (*domain.Reminder, error) {
	var toggled *domain.Reminder
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model reminderModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", reminderID, userID).
			First(&model).Error; err != nil {
			return notFoundOrStore("toggle reminder", err)
		}

		next := !model.IsActive
		if err := tx.Model(&model).Update("is_active", next).Error; err != nil {
			return domain.WrapStoreError("toggle reminder", err)
		}
		model.IsActive = next

		reminder := model.toDomain()
		toggled = &reminder
		return nil
	})
	if err != nil {
		return nil, err
	}

	return toggled, nil
}

func (r *reminderRepository) Delete(ctx context.Context, userID, reminderID int64) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", reminderID, userID).
		Delete(&reminderModel{})
	if res.Error != nil {
		return domain.WrapStoreError("delete reminder", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrReminderNotFound
	}
	return nil
}

func getReminder(ctx context.Context, db *gorm.DB, userID, reminderID int64) (*domain.Reminder, error) {
	var model reminderModel
	if err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", reminderID, userID).
		First(&model).Error; err != nil {
		return nil, notFoundOrStore("get reminder", err)
	}

	reminder := model.toDomain()
	return &reminder, nil
}

func notFoundOrStore(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrReminderNotFound
	}
	return domain.WrapStoreError(op, err)
}

func toDomainReminders(models []reminderModel) []domain.Reminder {
	reminders := make([]domain.Reminder, 0, len(models))
	for i := range models {
		reminders = append(reminders, models[i].toDomain())
	}
	return reminders
}
