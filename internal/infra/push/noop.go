package push

import (
	"context"
	"log/slog"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
)

// NoopGateway logs notifications instead of sending them
// (PUSH_DELIVERY_MODE=disabled).
type NoopGateway struct{}

func NewNoopGateway() *NoopGateway {
	return &NoopGateway{}
}

func (g *NoopGateway) Send(ctx context.Context, token string, msg domain.PushMessage) error {
	slog.InfoContext(ctx, "push delivery disabled, notification dropped",
		slog.String("title", msg.Title),
		slog.String("body", msg.Body),
	)
	return nil
}

func (g *NoopGateway) SendMulticast(ctx context.Context, tokens []string, msg domain.PushMessage) (*domain.MulticastResult, error) {
	slog.InfoContext(ctx, "push delivery disabled, multicast dropped",
		slog.Int("token_count", len(tokens)),
		slog.String("title", msg.Title),
	)
	return &domain.MulticastResult{SuccessCount: len(tokens)}, nil
}
