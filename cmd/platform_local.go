//go:build !gcloud

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/glowzel/reminder-dispatcher/internal/config"
	"github.com/glowzel/reminder-dispatcher/internal/infra/push"
	"github.com/glowzel/reminder-dispatcher/internal/observability"
	"github.com/glowzel/reminder-dispatcher/internal/observability/logging"
)

func initTaskQueue(_ context.Context, cfg *config.Config) (push.TaskQueue, func() error, error) {
	relay := cfg.Push.Relay

	tq := push.NewHTTPTaskQueue(
		relay.TasksURL,
		relay.QueueName,
		relay.MaxRetries,
	)

	slog.Info("task queue initialized",
		slog.String("type", "http_emulator"),
		slog.String("url", relay.TasksURL),
		slog.String("queue", relay.QueueName),
	)

	return tq, tq.Close, nil
}

func initObservability(ctx context.Context) (*observability.Resources, error) {
	serviceName := os.Getenv("SERVICE_NAME")
	if serviceName == "" {
		serviceName = "reminder-dispatcher"
	}

	env := logging.EnvDev
	if e := os.Getenv("ENV"); e != "" {
		env = logging.Environment(e)
	}

	obs, err := observability.Init(ctx, observability.Config{
		ServiceInfo: logging.ServiceInfo{
			Name:     serviceName,
			Version:  Version,
			Revision: "",
		},
		Environment:   env,
		GCPProjectID:  "",
		SamplingRate:  1.0,
		DefaultModule: serviceModule,
	})
	if err != nil {
		return nil, err
	}

	return obs, nil
}
