package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	pushDeliveryModeEnv  = "PUSH_DELIVERY_MODE"
	pushTitleEnv         = "PUSH_NOTIFICATION_TITLE"
	pushRateLimitEnv     = "PUSH_RATE_LIMIT_PER_SECOND"
	pushRateBurstEnv     = "PUSH_RATE_BURST"
	relayTasksURLEnv     = "PUSH_RELAY_TASKS_URL"
	relayQueueNameEnv    = "PUSH_RELAY_QUEUE_NAME"
	relayMaxRetriesEnv   = "PUSH_RELAY_MAX_RETRIES"
	relayOIDCAudienceEnv = "PUSH_RELAY_OIDC_AUDIENCE"

	defaultPushTitle      = "Glowzel Reminder"
	defaultPushRateBurst  = 10
	defaultRelayQueueName = "push-delivery"
	defaultRelayRetries   = 3
)

type DeliveryMode string

const (
	// DeliveryModeDirect sends through FCM from the scheduler process.
	DeliveryModeDirect DeliveryMode = "direct"
	// DeliveryModeRelay enqueues a task and FCM is called from the task callback.
	DeliveryModeRelay DeliveryMode = "relay"
	// DeliveryModeDisabled logs instead of sending.
	DeliveryModeDisabled DeliveryMode = "disabled"
)

type PushConfig struct {
	Mode              DeliveryMode
	NotificationTitle string
	// RateLimitPerSecond of 0 disables rate limiting.
	RateLimitPerSecond float64
	RateBurst          int
	Firebase           *FirebaseConfig
	Relay              RelayConfig
}

type RelayConfig struct {
	TasksURL  string
	QueueName string

	GCloudProjectID           string
	GCloudLocationID          string
	GCloudQueueID             string
	GCloudTargetURL           string
	GCloudServiceAccountEmail string

	// OIDCAudience enables ID token checks on the delivery callback when set.
	OIDCAudience string
	MaxRetries   int
}

func LoadPushConfig() (*PushConfig, error) {
	mode := DeliveryMode(getEnvOrDefault(pushDeliveryModeEnv, string(DeliveryModeDirect)))
	switch mode {
	case DeliveryModeDirect, DeliveryModeRelay, DeliveryModeDisabled:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDeliveryMode, mode)
	}

	var rateLimit float64
	if raw := os.Getenv(pushRateLimitEnv); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			return nil, ErrInvalidRateLimit
		}
		rateLimit = parsed
	}

	return &PushConfig{
		Mode:               mode,
		NotificationTitle:  getEnvOrDefault(pushTitleEnv, defaultPushTitle),
		RateLimitPerSecond: rateLimit,
		RateBurst:          getEnvPositiveInt(pushRateBurstEnv, defaultPushRateBurst),
		Firebase:           LoadFirebaseConfig(),
		Relay: RelayConfig{
			TasksURL:  os.Getenv(relayTasksURLEnv),
			QueueName: getEnvOrDefault(relayQueueNameEnv, defaultRelayQueueName),

			GCloudProjectID:           os.Getenv("GCLOUD_PROJECT_ID"),
			GCloudLocationID:          os.Getenv("GCLOUD_LOCATION_ID"),
			GCloudQueueID:             os.Getenv("GCLOUD_QUEUE_ID"),
			GCloudTargetURL:           os.Getenv("GCLOUD_TARGET_URL"),
			GCloudServiceAccountEmail: os.Getenv("GCLOUD_TASKS_SERVICE_ACCOUNT"),

			OIDCAudience: os.Getenv(relayOIDCAudienceEnv),
			MaxRetries:   getEnvPositiveInt(relayMaxRetriesEnv, defaultRelayRetries),
		},
	}, nil
}

// NeedsFirebase reports whether this process calls FCM itself. In relay mode
// it does so from the delivery callback.
func (c *PushConfig) NeedsFirebase() bool {
	return c.Mode == DeliveryModeDirect || c.Mode == DeliveryModeRelay
}
