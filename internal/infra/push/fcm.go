package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
	"github.com/glowzel/reminder-dispatcher/internal/observability/tracing"
)

// FCM accepts at most this many tokens per multicast request.
const maxMulticastTokens = 500

type messagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type FCMConfig struct {
	ProjectID       string
	CredentialsFile string
	CredentialsJSON []byte
}

type FCMGateway struct {
	client messagingClient
}

func NewFCMGateway(ctx context.Context, cfg FCMConfig) (*FCMGateway, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	case len(cfg.CredentialsJSON) > 0:
		opts = append(opts, option.WithCredentialsJSON(cfg.CredentialsJSON))
	}

	var fbConfig *firebase.Config
	if cfg.ProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firebase messaging client: %w", err)
	}

	slog.Info("firebase messaging client initialized",
		slog.String("project_id", cfg.ProjectID),
	)

	return &FCMGateway{client: client}, nil
}

func (g *FCMGateway) Send(ctx context.Context, token string, msg domain.PushMessage) error {
	if token == "" {
		return domain.NewInvalidTokenError(token, errors.New("empty device token"))
	}

	ctx, span := tracing.StartExternalAPISpan(ctx, "fcm.send", "fcm")
	defer span.End()

	messageID, err := g.client.Send(ctx, &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
	})
	if err != nil {
		derr := classifyFCMError(token, err)
		tracing.RecordResult(span, derr)
		return derr
	}

	tracing.RecordResult(span, nil)
	slog.DebugContext(ctx, "push notification sent",
		slog.String("message_id", messageID),
	)
	return nil
}

// SendMulticast sends in chunks of 500. Per-token failures are counted in the
// result; the error is only set when a whole chunk could not be sent.
func (g *FCMGateway) SendMulticast(ctx context.Context, tokens []string, msg domain.PushMessage) (*domain.MulticastResult, error) {
	result := &domain.MulticastResult{}
	if len(tokens) == 0 {
		return result, nil
	}

	ctx, span := tracing.StartExternalAPISpan(ctx, "fcm.multicast", "fcm")
	defer span.End()

	var errs []error
	for start := 0; start < len(tokens); start += maxMulticastTokens {
		chunk := tokens[start:min(start+maxMulticastTokens, len(tokens))]

		resp, err := g.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens: chunk,
			Notification: &messaging.Notification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: msg.Data,
		})
		if err != nil {
			result.FailureCount += len(chunk)
			errs = append(errs, classifyFCMError("", err))
			continue
		}

		result.SuccessCount += resp.SuccessCount
		result.FailureCount += resp.FailureCount
		for i, r := range resp.Responses {
			if r == nil || r.Success || i >= len(chunk) {
				continue
			}
			if classifyFCMError(chunk[i], r.Error).Kind == domain.DeliveryErrorInvalidToken {
				result.InvalidTokens = append(result.InvalidTokens, chunk[i])
			}
		}
	}

	err := errors.Join(errs...)
	tracing.RecordResult(span, err)

	slog.InfoContext(ctx, "multicast notification sent",
		slog.Int("success_count", result.SuccessCount),
		slog.Int("failure_count", result.FailureCount),
		slog.Int("invalid_token_count", len(result.InvalidTokens)),
	)

	return result, err
}

func classifyFCMError(token string, err error) *domain.DeliveryError {
	if err == nil {
		return domain.NewTransientDeliveryError(token, errors.New("unknown fcm failure"))
	}
	if messaging.IsUnregistered(err) || messaging.IsInvalidArgument(err) || messaging.IsSenderIDMismatch(err) {
		return domain.NewInvalidTokenError(token, err)
	}
	return domain.NewTransientDeliveryError(token, err)
}
