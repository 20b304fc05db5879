package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
)

type ReminderHandler struct {
	reminders domain.ReminderRepository
}

func NewReminderHandler(reminders domain.ReminderRepository) *ReminderHandler {
	return &ReminderHandler{
		reminders: reminders,
	}
}

// Register mounts the CRUD routes on a group scoped by :user_id.
func (h *ReminderHandler) Register(rg *gin.RouterGroup) {
	rg.POST("", h.HandleCreate)
	rg.GET("", h.HandleList)
	rg.GET("/:reminder_id", h.HandleGet)
	rg.PUT("/:reminder_id", h.HandleUpdate)
	rg.POST("/:reminder_id/toggle", h.HandleToggle)
	rg.DELETE("/:reminder_id", h.HandleDelete)
}

type createReminderRequest struct {
	Name         string           `json:"name" binding:"required,max=255"`
	Time         string           `json:"time" binding:"required"`
	Frequency    domain.Frequency `json:"frequency" binding:"required"`
	SelectedDays *string          `json:"selected_days"`
}

type updateReminderRequest struct {
	Name         *string           `json:"name" binding:"omitempty,min=1,max=255"`
	Time         *string           `json:"time"`
	Frequency    *domain.Frequency `json:"frequency"`
	SelectedDays *string           `json:"selected_days"`
	IsActive     *bool             `json:"is_active"`
}

func (r updateReminderRequest) patch() domain.ReminderPatch {
	return domain.ReminderPatch{
		Name:         r.Name,
		Time:         r.Time,
		Frequency:    r.Frequency,
		SelectedDays: r.SelectedDays,
		IsActive:     r.IsActive,
	}
}

// validateSchedule checks the fields the matcher depends on.
func validateSchedule(timeOfDay string, frequency domain.Frequency, selectedDays string) error {
	if err := domain.ValidateTimeOfDay(timeOfDay); err != nil {
		return err
	}
	if !frequency.IsValid() {
		return domain.ErrInvalidFrequency
	}
	return domain.ValidateSelectedDays(frequency, selectedDays)
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func (h *ReminderHandler) HandleCreate(c *gin.Context) {
	ctx := c.Request.Context()

	userID, ok := parseIDParam(c, "user_id")
	if !ok {
		return
	}

	var req createReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	selectedDays := derefOr(req.SelectedDays, "")
	if err := validateSchedule(req.Time, req.Frequency, selectedDays); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	reminder := &domain.Reminder{
		UserID:       userID,
		Name:         req.Name,
		Time:         req.Time,
		Frequency:    req.Frequency,
		SelectedDays: selectedDays,
		IsActive:     true,
	}
	if err := h.reminders.Create(ctx, reminder); err != nil {
		respondStoreError(c, err, "user not found")
		return
	}

	slog.InfoContext(ctx, "reminder created",
		slog.Int64("reminder_id", reminder.ID),
		slog.Int64("user_id", userID),
		slog.String("frequency", reminder.Frequency.String()),
	)

	respondSuccess(c, http.StatusCreated, "Reminder created successfully", toReminderResponse(reminder))
}

func (h *ReminderHandler) HandleList(c *gin.Context) {
	userID, ok := parseIDParam(c, "user_id")
	if !ok {
		return
	}

	reminders, err := h.reminders.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondStoreError(c, err, "user not found")
		return
	}

	data := make([]reminderResponse, 0, len(reminders))
	for i := range reminders {
		data = append(data, toReminderResponse(&reminders[i]))
	}
	respondList(c, data)
}

func (h *ReminderHandler) HandleGet(c *gin.Context) {
	userID, ok := parseIDParam(c, "user_id")
	if !ok {
		return
	}
	reminderID, ok := parseIDParam(c, "reminder_id")
	if !ok {
		return
	}

	reminder, err := h.reminders.Get(c.Request.Context(), userID, reminderID)
	if err != nil {
		respondStoreError(c, err, "Reminder not found")
		return
	}

	respondSuccess(c, http.StatusOK, "Reminder retrieved successfully", toReminderResponse(reminder))
}

func (h *ReminderHandler) HandleUpdate(c *gin.Context) {
	ctx := c.Request.Context()

	userID, ok := parseIDParam(c, "user_id")
	if !ok {
		return
	}
	reminderID, ok := parseIDParam(c, "reminder_id")
	if !ok {
		return
	}

	var req updateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	// Schedule fields are validated as they will be after the update, so a
	// frequency change is checked against the stored days and vice versa.
	if req.Time != nil || req.Frequency != nil || req.SelectedDays != nil {
		current, err := h.reminders.Get(ctx, userID, reminderID)
		if err != nil {
			respondStoreError(c, err, "Reminder not found")
			return
		}

		frequency := current.Frequency
		if req.Frequency != nil {
			frequency = *req.Frequency
		}
		if err := validateSchedule(
			derefOr(req.Time, current.Time),
			frequency,
			derefOr(req.SelectedDays, current.SelectedDays),
		); err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	reminder, err := h.reminders.Update(ctx, userID, reminderID, req.patch())
	if err != nil {
		respondStoreError(c, err, "Reminder not found")
		return
	}

	slog.InfoContext(ctx, "reminder updated",
		slog.Int64("reminder_id", reminderID),
		slog.Int64("user_id", userID),
	)

	respondSuccess(c, http.StatusOK, "Reminder updated successfully", toReminderResponse(reminder))
}

func (h *ReminderHandler) HandleToggle(c *gin.Context) {
	ctx := c.Request.Context()

	userID, ok := parseIDParam(c, "user_id")
	if !ok {
		return
	}
	reminderID, ok := parseIDParam(c, "reminder_id")
	if !ok {
		return
	}

	reminder, err := h.reminders.Toggle(ctx, userID, reminderID)
	if err != nil {
		respondStoreError(c, err, "Reminder not found")
		return
	}

	state := "deactivated"
	if reminder.IsActive {
		state = "activated"
	}

	slog.InfoContext(ctx, "reminder toggled",
		slog.Int64("reminder_id", reminderID),
		slog.Bool("is_active", reminder.IsActive),
	)

	respondSuccess(c, http.StatusOK, "Reminder "+state+" successfully", toReminderResponse(reminder))
}

func (h *ReminderHandler) HandleDelete(c *gin.Context) {
	ctx := c.Request.Context()

	userID, ok := parseIDParam(c, "user_id")
	if !ok {
		return
	}
	reminderID, ok := parseIDParam(c, "reminder_id")
	if !ok {
		return
	}

	if err := h.reminders.Delete(ctx, userID, reminderID); err != nil {
		respondStoreError(c, err, "Reminder not found")
		return
	}

	slog.InfoContext(ctx, "reminder deleted",
		slog.Int64("reminder_id", reminderID),
		slog.Int64("user_id", userID),
	)

	respondSuccess(c, http.StatusOK, "Reminder deleted successfully", nil)
}
