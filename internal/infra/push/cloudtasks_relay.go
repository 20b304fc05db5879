//go:build gcloud

package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	taskspb "cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
)

type CloudTasksConfig struct {
	ProjectID  string
	LocationID string
	QueueID    string
	TargetURL  string
	// ServiceAccountEmail signs an OIDC token for the callback when set.
	ServiceAccountEmail string
	Audience            string
	MaxRetries          int
}

type CloudTasksQueue struct {
	client     *cloudtasks.Client
	cfg        CloudTasksConfig
	maxRetries int
}

func NewCloudTasksQueue(ctx context.Context, cfg CloudTasksConfig) (*CloudTasksQueue, error) {
	client, err := cloudtasks.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloud tasks client: %w", err)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &CloudTasksQueue{
		client:     client,
		cfg:        cfg,
		maxRetries: maxRetries,
	}, nil
}

func (q *CloudTasksQueue) queuePath() string {
	return fmt.Sprintf("projects/%s/locations/%s/queues/%s",
		q.cfg.ProjectID, q.cfg.LocationID, q.cfg.QueueID)
}

func (q *CloudTasksQueue) Enqueue(ctx context.Context, task *PushTask) (*TaskResponse, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return nil, domain.NewInvalidTokenError("", fmt.Errorf("failed to marshal push task: %w", err))
	}

	httpReq := &taskspb.HttpRequest{
		HttpMethod: taskspb.HttpMethod_POST,
		Url:        q.cfg.TargetURL,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: payload,
	}
	if q.cfg.ServiceAccountEmail != "" {
		audience := q.cfg.Audience
		if audience == "" {
			audience = q.cfg.TargetURL
		}
		httpReq.AuthorizationHeader = &taskspb.HttpRequest_OidcToken{
			OidcToken: &taskspb.OidcToken{
				ServiceAccountEmail: q.cfg.ServiceAccountEmail,
				Audience:            audience,
			},
		}
	}

	cloudTask := &taskspb.Task{
		MessageType: &taskspb.Task_HttpRequest{
			HttpRequest: httpReq,
		},
		ScheduleTime: timestamppb.New(time.Now()),
	}
	if name := task.TaskName(); name != "" {
		cloudTask.Name = fmt.Sprintf("%s/tasks/%s", q.queuePath(), name)
	}

	req := &taskspb.CreateTaskRequest{
		Parent: q.queuePath(),
		Task:   cloudTask,
	}

	return withRetry(ctx, q.maxRetries, task.TaskName(), func() (*TaskResponse, error) {
		return q.createTask(ctx, req, task)
	})
}

func (q *CloudTasksQueue) createTask(ctx context.Context, req *taskspb.CreateTaskRequest, task *PushTask) (*TaskResponse, error) {
	createdTask, err := q.client.CreateTask(ctx, req)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			// the queue already holds this reminder's task for this minute
			return &TaskResponse{Name: req.Task.Name, Duplicate: true}, nil
		}
		return nil, classifyCreateTaskError(ctx, task, err)
	}

	slog.InfoContext(ctx, "push task enqueued to Cloud Tasks",
		slog.String("task_name", createdTask.Name),
		slog.Int64("reminder_id", task.ReminderID),
		slog.Int("token_count", len(task.Tokens)),
	)

	var createTime time.Time
	if createdTask.CreateTime != nil {
		createTime = createdTask.CreateTime.AsTime()
	}

	return &TaskResponse{
		Name:       createdTask.Name,
		CreateTime: createTime,
	}, nil
}

func classifyCreateTaskError(ctx context.Context, task *PushTask, err error) error {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.PermissionDenied, codes.NotFound, codes.FailedPrecondition:
		slog.ErrorContext(ctx, "cloud tasks rejected push task",
			slog.Int64("reminder_id", task.ReminderID),
			slog.String("error", err.Error()),
		)
		return domain.NewInvalidTokenError("", fmt.Errorf("failed to create cloud task: %w", err))
	default:
		slog.WarnContext(ctx, "failed to create cloud task",
			slog.Int64("reminder_id", task.ReminderID),
			slog.String("error", err.Error()),
		)
		return domain.NewTransientDeliveryError("", fmt.Errorf("failed to create cloud task: %w", err))
	}
}

func (q *CloudTasksQueue) Close() error {
	return q.client.Close()
}
