package config

import (
	"errors"
	"fmt"
)

// ValidateForRun checks everything the server needs before it starts and
// reports every problem at once.
func ValidateForRun(cfg *Config) error {
	var errs []error

	if err := cfg.Database.Validate(); err != nil {
		errs = append(errs, err)
	}
	if cfg.Scheduler.WatermarkEnabled {
		if err := cfg.Redis.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if cfg.Push.NeedsFirebase() {
		if err := cfg.Push.Firebase.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if cfg.Push.Mode == DeliveryModeRelay {
		if err := cfg.Push.Relay.Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
