//go:build gcloud

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

func initTaskQueue(ctx context.Context, cfg *config.Config) (push.TaskQueue, func() error, error) {
	relay := cfg.Push.Relay

	cloudTasksQueue, err := push.NewCloudTasksQueue(ctx, push.CloudTasksConfig{
		ProjectID:           relay.GCloudProjectID,
		LocationID:          relay.GCloudLocationID,
		QueueID:             relay.GCloudQueueID,
		TargetURL:           relay.GCloudTargetURL,
		ServiceAccountEmail: relay.GCloudServiceAccountEmail,
		Audience:            relay.OIDCAudience,
		MaxRetries:          relay.MaxRetries,
	})
	if err != nil {
		return nil, nil, err
	}

	slog.Info("task queue initialized",
		slog.String("type", "cloud_tasks"),
		slog.String("project", relay.GCloudProjectID),
		slog.String("location", relay.GCloudLocationID),
		slog.String("queue", relay.GCloudQueueID),
	)

	cleanup := func() error {
		if err := cloudTasksQueue.Close(); err != nil {
			slog.Warn("failed to close cloud tasks client", slog.String("error", err.Error()))

			return err
		}

		return nil
	}

	return cloudTasksQueue, cleanup, nil
}

func initObservability(ctx context.Context) (*observability.Resources, error) {
	serviceName := os.Getenv("K_SERVICE")
	if serviceName == "" {
		serviceName = "reminder-dispatcher"
	}

	env := logging.EnvProd
	if e := os.Getenv("ENV"); e != "" {
		env = logging.Environment(e)
	}

	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		projectID = os.Getenv("GCLOUD_PROJECT_ID")
	}

	obs, err := observability.Init(ctx, observability.Config{
		ServiceInfo: logging.ServiceInfo{
			Name:     serviceName,
			Version:  Version,
			Revision: os.Getenv("K_REVISION"),
		},
		Environment:   env,
		GCPProjectID:  projectID,
		SamplingRate:  1.0,
		DefaultModule: serviceModule,
	})
	if err != nil {
		return nil, err
	}

	return obs, nil
}
