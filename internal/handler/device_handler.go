package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
)

type DeviceHandler struct {
	devices domain.DeviceDirectory
}

func NewDeviceHandler(devices domain.DeviceDirectory) *DeviceHandler {
	return &DeviceHandler{
		devices: devices,
	}
}

type deviceTokenRequest struct {
	DeviceToken string `json:"device_token" binding:"required,max=4096"`
}

func (h *DeviceHandler) HandleSet(c *gin.Context) {
	ctx := c.Request.Context()

	userID, ok := parseIDParam(c, "user_id")
	if !ok {
		return
	}

	var req deviceTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.devices.SetDeviceToken(ctx, userID, req.DeviceToken); err != nil {
		respondStoreError(c, err, "User not found")
		return
	}

	slog.InfoContext(ctx, "device token registered", slog.Int64("user_id", userID))

	respondSuccess(c, http.StatusOK, "Device token updated successfully", nil)
}

func (h *DeviceHandler) HandleClear(c *gin.Context) {
	ctx := c.Request.Context()

	userID, ok := parseIDParam(c, "user_id")
	if !ok {
		return
	}

	if err := h.devices.ClearDeviceToken(ctx, userID); err != nil {
		respondStoreError(c, err, "User not found")
		return
	}

	slog.InfoContext(ctx, "device token cleared", slog.Int64("user_id", userID))

	respondSuccess(c, http.StatusOK, "Device token removed successfully", nil)
}
