package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	LogLevel    slog.Level
	Environment string
	Database    *DatabaseConfig
	Redis       *RedisConfig
	Scheduler   *SchedulerConfig
	Push        *PushConfig
}

// LoadDotEnv loads variables from the given files (".env" when none are
// given) without overriding variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if len(existing) == 0 {
		return nil
	}

	return godotenv.Load(existing...)
}

func Load() (*Config, error) {
	redisConfig, err := LoadRedisConfig()
	if err != nil {
		return nil, err
	}

	databaseConfig, err := LoadDatabaseConfig()
	if err != nil {
		return nil, err
	}

	schedulerConfig, err := LoadSchedulerConfig()
	if err != nil {
		return nil, err
	}

	pushConfig, err := LoadPushConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		LogLevel:    parseLogLevel(os.Getenv("LOG_LEVEL")),
		Environment: getEnvOrDefault("ENV", "dev"),
		Database:    databaseConfig,
		Redis:       redisConfig,
		Scheduler:   schedulerConfig,
		Push:        pushConfig,
	}, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
