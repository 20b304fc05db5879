package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
	"github.com/glowzel/reminder-dispatcher/internal/infra/push"
)

type PushHandler struct {
	// deliverer performs the vendor call for relayed tasks (FCM). Nil when
	// this instance is not configured for direct delivery.
	deliverer domain.PushGateway
	// sender is the gateway the scheduler uses, exercised by the test endpoint.
	sender  domain.PushGateway
	devices domain.DeviceDirectory
	fired   domain.FiredRepository // per-minute sent counter, may be nil
	title   string
}

func NewPushHandler(deliverer, sender domain.PushGateway, devices domain.DeviceDirectory, fired domain.FiredRepository, title string) *PushHandler {
	return &PushHandler{
		deliverer: deliverer,
		sender:    sender,
		devices:   devices,
		fired:     fired,
		title:     title,
	}
}

type deliverResponse struct {
	SuccessCount  int      `json:"success_count"`
	FailureCount  int      `json:"failure_count"`
	InvalidTokens []string `json:"invalid_tokens,omitempty"`
}

// HandleDeliver is the task-queue callback for relayed pushes. A transient
// failure answers 503 so the queue retries; anything else is acknowledged.
func (h *PushHandler) HandleDeliver(c *gin.Context) {
	ctx := c.Request.Context()

	if h.deliverer == nil {
		respondError(c, http.StatusServiceUnavailable, "push delivery not configured")
		return
	}

	var task push.PushTask
	if err := c.ShouldBindJSON(&task); err != nil {
		slog.WarnContext(ctx, "invalid push task",
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.deliverer.SendMulticast(ctx, task.Tokens, task.Message())
	resp := deliverResponse{}
	if result != nil {
		resp = deliverResponse{
			SuccessCount:  result.SuccessCount,
			FailureCount:  result.FailureCount,
			InvalidTokens: result.InvalidTokens,
		}
	}

	if err != nil {
		kind := domain.DeliveryKindOf(err)
		slog.WarnContext(ctx, "relayed push delivery failed",
			slog.Int64("reminder_id", task.ReminderID),
			slog.String("minute_key", task.MinuteKey),
			slog.String("error_kind", string(kind)),
			slog.String("error", err.Error()),
		)
		if kind == domain.DeliveryErrorTransient {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"message": "push delivery failed, retry later",
				"data":    resp,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": "push delivery rejected",
			"data":    resp,
		})
		return
	}

	if len(resp.InvalidTokens) > 0 {
		slog.WarnContext(ctx, "device tokens rejected by FCM",
			slog.Int64("reminder_id", task.ReminderID),
			slog.Int("invalid_token_count", len(resp.InvalidTokens)),
		)
	}

	if h.fired != nil && task.MinuteKey != "" && resp.SuccessCount > 0 {
		if err := h.fired.IncrementSentCount(ctx, task.MinuteKey, resp.SuccessCount); err != nil {
			slog.WarnContext(ctx, "failed to increment sent count",
				slog.Int64("reminder_id", task.ReminderID),
				slog.String("minute_key", task.MinuteKey),
				slog.String("error", err.Error()),
			)
		}
	}

	slog.InfoContext(ctx, "relayed push delivered",
		slog.Int64("reminder_id", task.ReminderID),
		slog.String("minute_key", task.MinuteKey),
		slog.Int("success_count", resp.SuccessCount),
		slog.Int("failure_count", resp.FailureCount),
	)

	respondSuccess(c, http.StatusOK, "Push delivered", resp)
}

type testPushRequest struct {
	UserID int64  `json:"user_id" binding:"required,gt=0"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// HandleTest sends a one-off notification to a user's registered device.
func (h *PushHandler) HandleTest(c *gin.Context) {
	ctx := c.Request.Context()

	var req testPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	token, ok, err := h.devices.DeviceToken(ctx, req.UserID)
	if err != nil {
		respondStoreError(c, err, "User not found")
		return
	}
	if !ok {
		respondError(c, http.StatusNotFound, "User has no device token")
		return
	}

	msg := domain.PushMessage{
		Title: req.Title,
		Body:  req.Body,
		Data:  map[string]string{"type": "test"},
	}
	if msg.Title == "" {
		msg.Title = h.title
	}
	if msg.Body == "" {
		msg.Body = "Test notification"
	}

	if err := h.sender.Send(ctx, token, msg); err != nil {
		slog.WarnContext(ctx, "test push failed",
			slog.Int64("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusBadGateway, gin.H{
			"success":    false,
			"message":    "Failed to send test notification",
			"error_kind": domain.DeliveryKindOf(err),
		})
		return
	}

	respondSuccess(c, http.StatusOK, "Test notification sent", nil)
}
