package push

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
)

// PushTask is the payload a relay queue carries back to /api/v1/push/deliver.
type PushTask struct {
	ReminderID int64             `json:"reminder_id,omitempty"`
	MinuteKey  string            `json:"minute_key,omitempty"`
	Tokens     []string          `json:"tokens" binding:"required,min=1,dive,required"`
	Title      string            `json:"title" binding:"required"`
	Body       string            `json:"body"`
	Data       map[string]string `json:"data,omitempty"`
}

// TaskName is stable per reminder and minute so that the queue rejects a
// second enqueue of the same firing. Tasks without a reminder get no name.
func (t *PushTask) TaskName() string {
	if t.ReminderID == 0 || t.MinuteKey == "" {
		return ""
	}
	return fmt.Sprintf("reminder-%d-%s", t.ReminderID, t.MinuteKey)
}

func (t *PushTask) Message() domain.PushMessage {
	return domain.PushMessage{Title: t.Title, Body: t.Body, Data: t.Data}
}

func newPushTask(tokens []string, msg domain.PushMessage) *PushTask {
	task := &PushTask{
		Tokens: tokens,
		Title:  msg.Title,
		Body:   msg.Body,
		Data:   msg.Data,
	}
	if id, err := strconv.ParseInt(msg.Data["reminder_id"], 10, 64); err == nil {
		task.ReminderID = id
	}
	task.MinuteKey = msg.Data["minute_key"]
	return task
}

type TaskResponse struct {
	Name       string    `json:"name"`
	CreateTime time.Time `json:"create_time"`
	Duplicate  bool      `json:"duplicate"`
}

// TaskQueue hands a push task to an asynchronous worker. Errors are
// *domain.DeliveryError.
type TaskQueue interface {
	Enqueue(ctx context.Context, task *PushTask) (*TaskResponse, error)
	Close() error
}
