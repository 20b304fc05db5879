package push

import (
	"context"
	"log/slog"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
)

// RelayGateway satisfies domain.PushGateway by enqueueing the notification;
// the actual FCM call happens when the queue invokes the delivery callback.
// A successful Send therefore means "accepted", not "delivered".
type RelayGateway struct {
	queue TaskQueue
}

func NewRelayGateway(queue TaskQueue) *RelayGateway {
	return &RelayGateway{queue: queue}
}

func (g *RelayGateway) Send(ctx context.Context, token string, msg domain.PushMessage) error {
	task := newPushTask([]string{token}, msg)

	resp, err := g.queue.Enqueue(ctx, task)
	if err != nil {
		return err
	}

	if resp.Duplicate {
		slog.InfoContext(ctx, "push task already enqueued",
			slog.String("task_name", task.TaskName()),
			slog.Int64("reminder_id", task.ReminderID),
		)
	}
	return nil
}

func (g *RelayGateway) SendMulticast(ctx context.Context, tokens []string, msg domain.PushMessage) (*domain.MulticastResult, error) {
	if len(tokens) == 0 {
		return &domain.MulticastResult{}, nil
	}

	if _, err := g.queue.Enqueue(ctx, newPushTask(tokens, msg)); err != nil {
		return &domain.MulticastResult{FailureCount: len(tokens)}, err
	}

	return &domain.MulticastResult{SuccessCount: len(tokens)}, nil
}

func (g *RelayGateway) Close() error {
	return g.queue.Close()
}
