package config

import (
	"fmt"
	"os"
	"time"
)

const (
	schedulerEnabledEnv          = "SCHEDULER_ENABLED"
	schedulerIntervalEnv         = "SCHEDULER_INTERVAL"
	schedulerAlignToMinuteEnv    = "SCHEDULER_ALIGN_TO_MINUTE"
	schedulerTimezoneEnv         = "SCHEDULER_TIMEZONE"
	schedulerConcurrencyEnv      = "SCHEDULER_CONCURRENCY"
	schedulerDeliveryTimeoutEnv  = "SCHEDULER_DELIVERY_TIMEOUT"
	schedulerWatermarkEnabledEnv = "SCHEDULER_WATERMARK_ENABLED"
	schedulerWatermarkTTLEnv     = "SCHEDULER_WATERMARK_TTL"

	defaultSchedulerInterval        = time.Minute
	defaultSchedulerConcurrency     = 4
	defaultSchedulerDeliveryTimeout = 10 * time.Second
	defaultSchedulerWatermarkTTL    = 2 * time.Hour
)

type SchedulerConfig struct {
	Enabled         bool
	Interval        time.Duration
	AlignToMinute   bool
	Location        *time.Location // nil means host local time
	Concurrency     int
	DeliveryTimeout time.Duration

	WatermarkEnabled bool
	WatermarkTTL     time.Duration
}

func LoadSchedulerConfig() (*SchedulerConfig, error) {
	enabled, err := getEnvBool(schedulerEnabledEnv, true)
	if err != nil {
		return nil, err
	}

	interval, err := getEnvDuration(schedulerIntervalEnv, defaultSchedulerInterval)
	if err != nil {
		return nil, err
	}

	align, err := getEnvBool(schedulerAlignToMinuteEnv, true)
	if err != nil {
		return nil, err
	}

	var location *time.Location
	if tz := os.Getenv(schedulerTimezoneEnv); tz != "" {
		location, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
		}
	}

	deliveryTimeout, err := getEnvDuration(schedulerDeliveryTimeoutEnv, defaultSchedulerDeliveryTimeout)
	if err != nil {
		return nil, err
	}

	watermarkEnabled, err := getEnvBool(schedulerWatermarkEnabledEnv, true)
	if err != nil {
		return nil, err
	}

	watermarkTTL, err := getEnvDuration(schedulerWatermarkTTLEnv, defaultSchedulerWatermarkTTL)
	if err != nil {
		return nil, err
	}

	return &SchedulerConfig{
		Enabled:          enabled,
		Interval:         interval,
		AlignToMinute:    align,
		Location:         location,
		Concurrency:      getEnvPositiveInt(schedulerConcurrencyEnv, defaultSchedulerConcurrency),
		DeliveryTimeout:  deliveryTimeout,
		WatermarkEnabled: watermarkEnabled,
		WatermarkTTL:     watermarkTTL,
	}, nil
}
