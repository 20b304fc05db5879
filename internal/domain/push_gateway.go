package domain

import "context"

//go:generate mockgen -source=push_gateway.go -destination=push_gateway_mock.go -package=domain

type PushMessage struct {
	Title string
	Body  string
	Data  map[string]string
}

type MulticastResult struct {
	SuccessCount  int
	FailureCount  int
	InvalidTokens []string
}

// PushGateway delivers a notification to device tokens.
// Send returns a *DeliveryError on failure.
type PushGateway interface {
	Send(ctx context.Context, token string, msg PushMessage) error
	SendMulticast(ctx context.Context, tokens []string, msg PushMessage) (*MulticastResult, error)
}
