package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	databaseURLEnv       = "DATABASE_URL"
	dbHostEnv            = "DB_HOST"
	dbPortEnv            = "DB_PORT"
	dbUserEnv            = "DB_USER"
	dbPasswordEnv        = "DB_PASSWORD"
	dbNameEnv            = "DB_NAME"
	dbSSLModeEnv         = "DB_SSLMODE"
	dbMaxOpenConnsEnv    = "DB_MAX_OPEN_CONNS"
	dbMaxIdleConnsEnv    = "DB_MAX_IDLE_CONNS"
	dbConnMaxLifetimeEnv = "DB_CONN_MAX_LIFETIME"

	defaultDBPort         = 5432
	defaultDBSSLMode      = "disable"
	defaultDBMaxOpenConns = 10
	defaultDBMaxIdleConns = 5
	defaultDBConnLifetime = 30 * time.Minute
)

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func LoadDatabaseConfig() (*DatabaseConfig, error) {
	port := defaultDBPort
	if raw := os.Getenv(dbPortEnv); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return nil, ErrInvalidDatabasePort
		}
		port = parsed
	}

	lifetime, err := getEnvDuration(dbConnMaxLifetimeEnv, defaultDBConnLifetime)
	if err != nil {
		return nil, err
	}

	return &DatabaseConfig{
		URL:             os.Getenv(databaseURLEnv),
		Host:            os.Getenv(dbHostEnv),
		Port:            port,
		User:            os.Getenv(dbUserEnv),
		Password:        os.Getenv(dbPasswordEnv),
		Name:            os.Getenv(dbNameEnv),
		SSLMode:         getEnvOrDefault(dbSSLModeEnv, defaultDBSSLMode),
		MaxOpenConns:    getEnvPositiveInt(dbMaxOpenConnsEnv, defaultDBMaxOpenConns),
		MaxIdleConns:    getEnvPositiveInt(dbMaxIdleConnsEnv, defaultDBMaxIdleConns),
		ConnMaxLifetime: lifetime,
	}, nil
}

// DSN prefers DATABASE_URL and otherwise builds a key/value DSN for the
// postgres driver.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

func (c *DatabaseConfig) Validate() error {
	if c == nil {
		return ErrDatabaseMissing
	}
	if c.URL == "" && (c.Host == "" || c.Name == "") {
		return ErrDatabaseMissing
	}
	return nil
}
