package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
)

type reminderResponse struct {
	ID           int64            `json:"id"`
	UserID       int64            `json:"user_id"`
	Name         string           `json:"name"`
	Time         string           `json:"time"`
	Frequency    domain.Frequency `json:"frequency"`
	SelectedDays *string          `json:"selected_days"`
	IsActive     bool             `json:"is_active"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    *time.Time       `json:"updated_at"`
}

func toReminderResponse(r *domain.Reminder) reminderResponse {
	resp := reminderResponse{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		Time:      r.Time,
		Frequency: r.Frequency,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
	}
	if r.SelectedDays != "" {
		days := r.SelectedDays
		resp.SelectedDays = &days
	}
	if !r.UpdatedAt.IsZero() {
		updated := r.UpdatedAt
		resp.UpdatedAt = &updated
	}
	return resp
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

func respondSuccess(c *gin.Context, status int, message string, data any) {
	body := gin.H{
		"success": true,
		"message": message,
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func respondList[T any](c *gin.Context, data []T) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"total":   len(data),
	})
}

// respondStoreError maps repository errors onto HTTP statuses.
func respondStoreError(c *gin.Context, err error, notFoundMessage string) {
	switch {
	case errors.Is(err, domain.ErrReminderNotFound), errors.Is(err, domain.ErrUserNotFound):
		respondError(c, http.StatusNotFound, notFoundMessage)
	default:
		slog.ErrorContext(c.Request.Context(), "store operation failed",
			slog.String("path", c.FullPath()),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}
