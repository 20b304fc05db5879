package config

import "errors"

var (
	ErrRedisAddrMissing      = errors.New("REDIS_ADDR is required")
	ErrInvalidRedisDB        = errors.New("REDIS_DB must be a valid integer")
	ErrDatabaseMissing       = errors.New("DATABASE_URL or DB_HOST and DB_NAME are required")
	ErrInvalidDatabasePort   = errors.New("DB_PORT must be a valid integer")
	ErrInvalidDeliveryMode   = errors.New("PUSH_DELIVERY_MODE must be direct, relay or disabled")
	ErrInvalidRateLimit      = errors.New("PUSH_RATE_LIMIT_PER_SECOND must be a non-negative number")
	ErrInvalidTimezone       = errors.New("SCHEDULER_TIMEZONE must be an IANA time zone")
	ErrFirebaseNotConfigured = errors.New("FIREBASE_CREDENTIALS_FILE or FIREBASE_* service account variables are required")
)
