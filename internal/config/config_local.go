//go:build !gcloud

package config

import "errors"

func (c *RelayConfig) Validate() error {
	if c.TasksURL == "" {
		return errors.New("PUSH_RELAY_TASKS_URL is required in relay mode")
	}
	return nil
}
