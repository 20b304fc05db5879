package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/glowzel/reminder-dispatcher/internal/config"
	"github.com/glowzel/reminder-dispatcher/internal/domain"
	"github.com/glowzel/reminder-dispatcher/internal/handler"
	"github.com/glowzel/reminder-dispatcher/internal/health"
	"github.com/glowzel/reminder-dispatcher/internal/infra/cyclerecorder"
	"github.com/glowzel/reminder-dispatcher/internal/infra/push"
	"github.com/glowzel/reminder-dispatcher/internal/infra/repository"
	"github.com/glowzel/reminder-dispatcher/internal/observability/logging"
	"github.com/glowzel/reminder-dispatcher/internal/observability/metrics"
	"github.com/glowzel/reminder-dispatcher/internal/observability/middleware"
	"github.com/glowzel/reminder-dispatcher/internal/service/scheduler"
)

// Version is set via ldflags at build time
var Version = "dev"

const serviceModule = logging.Module("reminder-dispatcher")

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("failed to load .env file", slog.String("error", err.Error()))
	}

	obs, err := initObservability(ctx)
	if err != nil {
		slog.Error("failed to initialize observability", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			slog.Warn("observability shutdown error", slog.String("error", err.Error()))
		}
	}()

	slog.SetDefault(obs.Logger())

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		return 1
	}
	obs.SetLogLevel(cfg.LogLevel)

	if err := config.ValidateForRun(cfg); err != nil {
		slog.Error("configuration validation error", slog.String("error", err.Error()))
		return 1
	}

	httpMetrics, err := metrics.NewHTTPMetrics()
	if err != nil {
		slog.Error("failed to initialize HTTP metrics", slog.String("error", err.Error()))
		return 1
	}

	reminderMetrics, err := metrics.NewReminderMetrics()
	if err != nil {
		slog.Error("failed to initialize reminder metrics", slog.String("error", err.Error()))
		return 1
	}

	// InfluxDB locally, BigQuery under gcloud
	cycleRecorder, err := cyclerecorder.NewRecorder(ctx, cyclerecorder.LoadConfig())
	if err != nil {
		slog.Error("failed to initialize cycle result recorder", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := cycleRecorder.Flush(flushCtx); err != nil {
			slog.Warn("failed to flush cycle result recorder", slog.String("error", err.Error()))
		}
		if err := cycleRecorder.Close(); err != nil {
			slog.Warn("failed to close cycle result recorder", slog.String("error", err.Error()))
		}
	}()

	db, err := openDatabase(cfg.Database)
	if err != nil {
		slog.Error("failed to connect database",
			slog.String("event", "db.connect.fail"),
			slog.String("error", err.Error()),
		)
		return 1
	}
	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("failed to get database handle", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			slog.Warn("failed to close database", slog.String("error", err.Error()))
		}
	}()

	if err := sqlDB.PingContext(ctx); err != nil {
		slog.Error("failed to ping database",
			slog.String("event", "db.connect.fail"),
			slog.String("error", err.Error()),
		)
		return 1
	}

	slog.Info("database connected",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Name),
	)

	// Redis only backs the fired watermark; without it the scheduler runs unguarded.
	var redisClient *redis.Client
	var firedRepo domain.FiredRepository
	if cfg.Scheduler.WatermarkEnabled {
		redisClient, err = openRedis(ctx, cfg.Redis)
		if err != nil {
			return 1
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				slog.Warn("failed to close redis client", slog.String("error", err.Error()))
			}
		}()

		firedRepo = repository.NewFiredRepository(redisClient, cfg.Scheduler.WatermarkTTL)
	} else {
		slog.Warn("fired watermark disabled, overlapping cycles may deliver twice")
	}

	reminderRepo := repository.NewReminderRepository(db)
	userRepo := repository.NewUserRepository(db)

	// fcmGateway stays nil when this process never calls FCM itself.
	var fcmGateway domain.PushGateway
	if cfg.Push.NeedsFirebase() {
		gw, err := newFCMGateway(ctx, cfg.Push.Firebase)
		if err != nil {
			slog.Error("failed to initialize firebase messaging", slog.String("error", err.Error()))
			return 1
		}
		fcmGateway = gw
	}

	var gateway domain.PushGateway
	switch cfg.Push.Mode {
	case config.DeliveryModeDirect:
		gateway = fcmGateway
	case config.DeliveryModeRelay:
		taskQueue, cleanup, err := initTaskQueue(ctx, cfg)
		if err != nil {
			slog.Error("failed to initialize task queue", slog.String("error", err.Error()))
			return 1
		}
		if cleanup != nil {
			defer func() {
				if err := cleanup(); err != nil {
					slog.Error("task queue cleanup error", slog.String("error", err.Error()))
				}
			}()
		}
		gateway = push.NewRelayGateway(taskQueue)
	default:
		slog.Warn("push delivery disabled, notifications will only be logged")
		gateway = push.NewNoopGateway()
	}

	var limiter *rate.Limiter
	if cfg.Push.RateLimitPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Push.RateLimitPerSecond), cfg.Push.RateBurst)
	}

	clock := domain.SystemClock{Location: cfg.Scheduler.Location}

	reminderScheduler := scheduler.NewScheduler(
		reminderRepo,
		userRepo,
		gateway,
		firedRepo,
		cycleRecorder,
		reminderMetrics,
		limiter,
		clock,
		scheduler.Options{
			Interval:          cfg.Scheduler.Interval,
			AlignToMinute:     cfg.Scheduler.AlignToMinute,
			Concurrency:       cfg.Scheduler.Concurrency,
			DeliveryTimeout:   cfg.Scheduler.DeliveryTimeout,
			NotificationTitle: cfg.Push.NotificationTitle,
			RelayedDelivery:   cfg.Push.Mode == config.DeliveryModeRelay,
		},
	)

	if cfg.Scheduler.Enabled {
		if err := reminderScheduler.Start(ctx); err != nil {
			slog.Error("failed to start scheduler", slog.String("error", err.Error()))
			return 1
		}
	} else {
		slog.Warn("scheduler loop disabled, cycles run only via the operations API")
	}

	reminderHandler := handler.NewReminderHandler(reminderRepo)
	deviceHandler := handler.NewDeviceHandler(userRepo)
	schedulerHandler := handler.NewSchedulerHandler(reminderScheduler, firedRepo, clock)
	pushHandler := handler.NewPushHandler(fcmGateway, gateway, userRepo, firedRepo, cfg.Push.NotificationTitle)

	r := gin.New()
	r.Use(middleware.Gin(middleware.GinConfig{
		SkipPaths:  []string{"/health", "/health/live", "/health/ready", "/metrics"},
		Module:     serviceModule,
		Worker:     true,
		TracerName: "github.com/glowzel/reminder-dispatcher/internal/observability/middleware",
		JobNameResolver: func(c *gin.Context) string {
			if taskName := c.Request.Header.Get("X-CloudTasks-TaskName"); taskName != "" {
				return taskName
			}
			return c.Request.URL.Path
		},
		HTTPMetrics: httpMetrics,
	}))
	r.Use(middleware.PanicRecoveryGin())

	healthChecker := health.NewChecker(redisClient, sqlDB, Version)
	r.GET("/health/live", healthChecker.LiveHandler())
	r.GET("/health/ready", healthChecker.ReadyHandler())
	r.GET("/health", healthChecker.ReadyHandler())

	v1 := r.Group("/api/v1")
	{
		users := v1.Group("/users/:user_id")
		reminderHandler.Register(users.Group("/reminders"))
		users.PUT("/device-token", deviceHandler.HandleSet)
		users.DELETE("/device-token", deviceHandler.HandleClear)

		v1.POST("/scheduler/run", schedulerHandler.HandleRun)
		v1.GET("/scheduler/status", schedulerHandler.HandleStatus)

		v1.POST("/push/deliver", handler.RelayAuth(cfg.Push.Relay.OIDCAudience), pushHandler.HandleDeliver)
		v1.POST("/push/test", pushHandler.HandleTest)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			slog.String("port", cfg.Port),
			slog.String("delivery_mode", string(cfg.Push.Mode)),
			slog.Bool("scheduler_enabled", cfg.Scheduler.Enabled),
			slog.Duration("scheduler_interval", cfg.Scheduler.Interval),
		)
		serverErr <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		// In-flight cycles finish before the stores they use are closed.
		if err := reminderScheduler.Stop(shutdownCtx); err != nil {
			slog.Warn("scheduler did not stop in time", slog.String("error", err.Error()))
		}
		cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown server", slog.String("error", err.Error()))
			return 1
		}

		slog.Info("server exited properly")
		return 0

	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return 0
		}
		slog.Error("server exited with error", slog.String("error", err.Error()))
		return 1
	}
}

func openDatabase(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

func openRedis(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(opts)

	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		slog.Error("failed to instrument redis tracing",
			slog.String("event", "redis.otel.tracing.fail"),
			slog.String("error", err.Error()),
		)
		_ = redisClient.Close()
		return nil, err
	}

	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		slog.Error("failed to instrument redis metrics",
			slog.String("event", "redis.otel.metrics.fail"),
			slog.String("error", err.Error()),
		)
		_ = redisClient.Close()
		return nil, err
	}

	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.Error("failed to connect redis",
			slog.String("event", "redis.connect.fail"),
			slog.String("error", err.Error()),
		)
		_ = redisClient.Close()
		return nil, err
	}

	slog.Info("redis connected",
		slog.String("addr", cfg.Addr),
	)

	return redisClient, nil
}

func newFCMGateway(ctx context.Context, cfg *config.FirebaseConfig) (*push.FCMGateway, error) {
	fcmCfg := push.FCMConfig{
		ProjectID:       cfg.ProjectID,
		CredentialsFile: cfg.CredentialsFile,
	}
	if cfg.CredentialsFile == "" {
		creds, err := cfg.CredentialsJSON()
		if err != nil {
			return nil, fmt.Errorf("firebase credentials: %w", err)
		}
		fcmCfg.CredentialsJSON = creds
	}
	return push.NewFCMGateway(ctx, fcmCfg)
}
