package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
)

type reminderModel struct {
	ID           int64     `gorm:"primaryKey"`
	UserID       int64     `gorm:"not null;index"`
	Name         string    `gorm:"size:255;not null"`
	Time         string    `gorm:"size:5;not null"`
	Frequency    string    `gorm:"size:16;not null"`
	SelectedDays *string   `gorm:"size:100"`
	IsActive     bool      `gorm:"not null;index"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (reminderModel) TableName() string {
	return "reminders"
}

// userModel maps only the columns this service reads or writes on users.
type userModel struct {
	ID          int64     `gorm:"primaryKey"`
	Email       string    `gorm:"size:255;uniqueIndex"`
	DeviceToken *string   `gorm:"size:512"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (userModel) TableName() string {
	return "users"
}

// AutoMigrate creates the tables. The server never calls it; the schema is
// owned by the application that registers users.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&userModel{}, &reminderModel{})
}

func (m *reminderModel) toDomain() domain.Reminder {
	var days string
	if m.SelectedDays != nil {
		days = *m.SelectedDays
	}

	return domain.Reminder{
		ID:           m.ID,
		UserID:       m.UserID,
		Name:         m.Name,
		Time:         m.Time,
		Frequency:    domain.Frequency(m.Frequency),
		SelectedDays: days,
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func newReminderModel(r *domain.Reminder) *reminderModel {
	var days *string
	if r.SelectedDays != "" {
		d := r.SelectedDays
		days = &d
	}

	return &reminderModel{
		ID:           r.ID,
		UserID:       r.UserID,
		Name:         r.Name,
		Time:         r.Time,
		Frequency:    r.Frequency.String(),
		SelectedDays: days,
		IsActive:     r.IsActive,
	}
}
