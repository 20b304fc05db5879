//go:build !gcloud

package push

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
	"github.com/glowzel/reminder-dispatcher/internal/observability/logging"
	"github.com/glowzel/reminder-dispatcher/internal/observability/tracing"
)

// HTTPTaskQueue talks to a Cloud Tasks style emulator over plain HTTP
// (POST {base}/tasks[/{queue}]). Used for local development.
type HTTPTaskQueue struct {
	baseURL    string
	queueName  string
	httpClient *http.Client
	maxRetries int
}

type emulatorTaskRequest struct {
	Task emulatorTask `json:"task"`
}

type emulatorTask struct {
	Name        string              `json:"name,omitempty"`
	HTTPRequest emulatorHTTPRequest `json:"httpRequest"`
}

type emulatorHTTPRequest struct {
	Body    string            `json:"body"`
	Headers map[string]string `json:"headers,omitempty"`
}

type emulatorTaskResponse struct {
	Name       string `json:"name"`
	CreateTime string `json:"createTime"`
}

func NewHTTPTaskQueue(baseURL, queueName string, maxRetries int) *HTTPTaskQueue {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &HTTPTaskQueue{
		baseURL:   baseURL,
		queueName: queueName,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: maxRetries,
	}
}

func (q *HTTPTaskQueue) Enqueue(ctx context.Context, task *PushTask) (*TaskResponse, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return nil, domain.NewInvalidTokenError("", fmt.Errorf("failed to marshal push task: %w", err))
	}

	reqBody, err := json.Marshal(emulatorTaskRequest{
		Task: emulatorTask{
			Name: task.TaskName(),
			HTTPRequest: emulatorHTTPRequest{
				Body: base64.StdEncoding.EncodeToString(payload),
				Headers: map[string]string{
					"Content-Type": "application/json",
				},
			},
		},
	})
	if err != nil {
		return nil, domain.NewInvalidTokenError("", fmt.Errorf("failed to marshal task request: %w", err))
	}

	url := fmt.Sprintf("%s/tasks", q.baseURL)
	if q.queueName != "" && q.queueName != "default" {
		url = fmt.Sprintf("%s/tasks/%s", q.baseURL, q.queueName)
	}

	return withRetry(ctx, q.maxRetries, task.TaskName(), func() (*TaskResponse, error) {
		return q.doRequest(ctx, url, reqBody, task)
	})
}

func (q *HTTPTaskQueue) doRequest(ctx context.Context, url string, reqBody []byte, task *PushTask) (*TaskResponse, error) {
	ctx, span := tracing.StartExternalAPISpan(ctx, "enqueue", url)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, domain.NewInvalidTokenError("", fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if requestID := logging.ValidateAndExtractRequestID(logging.RequestIDFromContext(ctx)); requestID != "" {
		req.Header.Set(logging.RequestIDHeader, requestID)
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		slog.WarnContext(ctx, "failed to send request to task queue",
			slog.Int64("reminder_id", task.ReminderID),
			slog.String("error", err.Error()),
		)
		err = domain.NewTransientDeliveryError("", fmt.Errorf("failed to send request: %w", err))
		tracing.RecordResult(span, err)
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		tracing.RecordResult(span, nil)
		return &TaskResponse{Name: task.TaskName(), Duplicate: true}, nil
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		err := domain.NewInvalidTokenError("", fmt.Errorf("task queue rejected request: status %d", resp.StatusCode))
		tracing.RecordResult(span, err)
		return nil, err
	default:
		slog.WarnContext(ctx, "unexpected status code from task queue",
			slog.Int64("reminder_id", task.ReminderID),
			slog.Int("status_code", resp.StatusCode),
		)
		err := domain.NewTransientDeliveryError("", fmt.Errorf("unexpected status code: %d", resp.StatusCode))
		tracing.RecordResult(span, err)
		return nil, err
	}

	var taskResp emulatorTaskResponse
	if err := json.NewDecoder(resp.Body).Decode(&taskResp); err != nil {
		err = domain.NewTransientDeliveryError("", fmt.Errorf("failed to decode response: %w", err))
		tracing.RecordResult(span, err)
		return nil, err
	}

	createTime, _ := time.Parse(time.RFC3339, taskResp.CreateTime)

	slog.InfoContext(ctx, "push task enqueued",
		slog.String("task_name", taskResp.Name),
		slog.Int64("reminder_id", task.ReminderID),
		slog.Int("token_count", len(task.Tokens)),
	)
	tracing.RecordResult(span, nil)

	return &TaskResponse{
		Name:       taskResp.Name,
		CreateTime: createTime,
	}, nil
}

func (q *HTTPTaskQueue) Close() error {
	q.httpClient.CloseIdleConnections()
	return nil
}
