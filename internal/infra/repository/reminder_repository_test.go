package repository

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
	"github.com/glowzel/reminder-dispatcher/internal/testutil"
)

func setupDB(t *testing.T) (*gorm.DB, func()) {
	t.Helper()

	ctx := context.Background()
	db, cleanup := testutil.SetupPostgresContainer(ctx, t)
	if err := AutoMigrate(db); err != nil {
		cleanup()
		t.Fatalf("failed to migrate: %v", err)
	}
	return db, cleanup
}

func createUser(t *testing.T, db *gorm.DB, email string, token *string) int64 {
	t.Helper()

	user := userModel{Email: email, DeviceToken: token}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user.ID
}

func ptr[T any](v T) *T {
	return &v
}

func TestReminderRepository_CRUD(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := setupDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewReminderRepository(db)
	userID := createUser(t, db, "a@example.com", nil)
	otherID := createUser(t, db, "b@example.com", nil)

	evening := &domain.Reminder{UserID: userID, Name: "Night cream", Time: "22:00", Frequency: domain.FrequencyWeekly, SelectedDays: "1,3,5", IsActive: true}
	morning := &domain.Reminder{UserID: userID, Name: "Sunscreen", Time: "08:00", Frequency: domain.FrequencyDaily, IsActive: true}
	for _, r := range []*domain.Reminder{evening, morning} {
		if err := repo.Create(ctx, r); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if r.ID == 0 || r.CreatedAt.IsZero() {
			t.Fatalf("Create() should fill id and timestamps, got %+v", r)
		}
	}

	t.Run("list by user is ordered by time", func(t *testing.T) {
		got, err := repo.ListByUser(ctx, userID)
		if err != nil {
			t.Fatalf("ListByUser() error = %v", err)
		}
		if len(got) != 2 || got[0].Name != "Sunscreen" || got[1].Name != "Night cream" {
			t.Errorf("ListByUser() = %+v, want Sunscreen then Night cream", got)
		}
	})

	t.Run("get enforces ownership", func(t *testing.T) {
		got, err := repo.Get(ctx, userID, evening.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.SelectedDays != "1,3,5" || got.Frequency != domain.FrequencyWeekly {
			t.Errorf("Get() = %+v", got)
		}

		if _, err := repo.Get(ctx, otherID, evening.ID); !errors.Is(err, domain.ErrReminderNotFound) {
			t.Errorf("Get() by other user error = %v, want ErrReminderNotFound", err)
		}
	})

	t.Run("partial update", func(t *testing.T) {
		got, err := repo.Update(ctx, userID, evening.ID, domain.ReminderPatch{
			Time:         ptr("21:30"),
			SelectedDays: ptr(""),
			Frequency:    ptr(domain.FrequencyDaily),
		})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if got.Time != "21:30" || got.SelectedDays != "" || got.Frequency != domain.FrequencyDaily || got.Name != "Night cream" {
			t.Errorf("Update() = %+v", got)
		}

		if _, err := repo.Update(ctx, otherID, evening.ID, domain.ReminderPatch{Name: ptr("x")}); !errors.Is(err, domain.ErrReminderNotFound) {
			t.Errorf("Update() by other user error = %v, want ErrReminderNotFound", err)
		}
	})

	t.Run("toggle hides from active lists", func(t *testing.T) {
		got, err := repo.Toggle(ctx, userID, morning.ID)
		if err != nil {
			t.Fatalf("Toggle() error = %v", err)
		}
		if got.IsActive {
			t.Error("Toggle() should deactivate an active reminder")
		}

		active, err := repo.ListActive(ctx)
		if err != nil {
			t.Fatalf("ListActive() error = %v", err)
		}
		for _, r := range active {
			if r.ID == morning.ID {
				t.Error("inactive reminder returned by ListActive")
			}
		}

		got, err = repo.Toggle(ctx, userID, morning.ID)
		if err != nil || !got.IsActive {
			t.Errorf("second Toggle() = %+v, %v; want active", got, err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := repo.Delete(ctx, otherID, morning.ID); !errors.Is(err, domain.ErrReminderNotFound) {
			t.Errorf("Delete() by other user error = %v, want ErrReminderNotFound", err)
		}
		if err := repo.Delete(ctx, userID, morning.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := repo.Get(ctx, userID, morning.ID); !errors.Is(err, domain.ErrReminderNotFound) {
			t.Errorf("Get() after delete error = %v, want ErrReminderNotFound", err)
		}
	})
}

func TestReminderRepository_ListActiveAcrossUsers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := setupDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewReminderRepository(db)
	u1 := createUser(t, db, "one@example.com", nil)
	u2 := createUser(t, db, "two@example.com", nil)

	inputs := []*domain.Reminder{
		{UserID: u1, Name: "a", Time: "08:00", Frequency: domain.FrequencyDaily, IsActive: true},
		{UserID: u2, Name: "b", Time: "09:00", Frequency: domain.FrequencyDaily, IsActive: true},
		{UserID: u2, Name: "c", Time: "10:00", Frequency: domain.FrequencyDaily, IsActive: false},
	}
	for _, r := range inputs {
		if err := repo.Create(ctx, r); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	got, err := repo.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListActive() returned %d reminders, want 2", len(got))
	}
	for _, r := range got {
		if !r.IsActive {
			t.Errorf("ListActive() returned inactive reminder %d", r.ID)
		}
	}
}

func TestReminderRepository_StoreErrors(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := setupDB(t)
	ctx := context.Background()
	repo := NewReminderRepository(db)
	cleanup()

	// the container is gone, so every query fails at the connection level
	if _, err := repo.ListActive(ctx); !errors.Is(err, domain.ErrStore) {
		t.Errorf("ListActive() error = %v, want ErrStore", err)
	}
}

func TestUserRepository_DeviceToken(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := setupDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewUserRepository(db)
	withToken := createUser(t, db, "token@example.com", ptr("fcm-token-1"))
	withoutToken := createUser(t, db, "none@example.com", nil)

	tests := []struct {
		name      string
		userID    int64
		wantToken string
		wantOK    bool
	}{
		{name: "user with token", userID: withToken, wantToken: "fcm-token-1", wantOK: true},
		{name: "user without token", userID: withoutToken},
		{name: "unknown user", userID: 987654},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, ok, err := repo.DeviceToken(ctx, tt.userID)
			if err != nil {
				t.Fatalf("DeviceToken() error = %v", err)
			}
			if token != tt.wantToken || ok != tt.wantOK {
				t.Errorf("DeviceToken() = %q, %v; want %q, %v", token, ok, tt.wantToken, tt.wantOK)
			}
		})
	}

	if err := repo.SetDeviceToken(ctx, withoutToken, "fcm-token-2"); err != nil {
		t.Fatalf("SetDeviceToken() error = %v", err)
	}
	if token, ok, _ := repo.DeviceToken(ctx, withoutToken); !ok || token != "fcm-token-2" {
		t.Errorf("DeviceToken() after set = %q, %v", token, ok)
	}

	if err := repo.ClearDeviceToken(ctx, withToken); err != nil {
		t.Fatalf("ClearDeviceToken() error = %v", err)
	}
	if _, ok, _ := repo.DeviceToken(ctx, withToken); ok {
		t.Error("DeviceToken() after clear should report no token")
	}

	if err := repo.SetDeviceToken(ctx, 987654, "x"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("SetDeviceToken() for unknown user error = %v, want ErrUserNotFound", err)
	}
}
