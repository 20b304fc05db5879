package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/glowzel/reminder-dispatcher/internal/domain"
)

const (
	firedKeyPrefix     = "reminder:fired:"
	sentCountKeyPrefix = "reminder:sent:"

	DefaultFiredTTL = 2 * time.Hour // outlives any overrunning cycle of the same minute
	sentCountTTL    = 1 * time.Hour
)

type firedRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewFiredRepository(client *redis.Client, ttl time.Duration) domain.FiredRepository {
	if ttl <= 0 {
		ttl = DefaultFiredTTL
	}
	return &firedRepository{
		client: client,
		ttl:    ttl,
	}
}

func firedKey(reminderID int64, minuteKey string) string {
	return fmt.Sprintf("%s%d:%s", firedKeyPrefix, reminderID, minuteKey)
}

func (r *firedRepository) Claim(ctx context.Context, reminderID int64, minuteKey string) (bool, error) {
	if minuteKey == "" {
		return false, ErrInvalidMinuteKey
	}

	claimed, err := r.client.SetNX(ctx, firedKey(reminderID, minuteKey), time.Now().UTC().Format(time.RFC3339), r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrRedisConnection, err)
	}

	return claimed, nil
}

func (r *firedRepository) Release(ctx context.Context, reminderID int64, minuteKey string) error {
	if err := r.client.Del(ctx, firedKey(reminderID, minuteKey)).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrRedisConnection, err)
	}
	return nil
}

func (r *firedRepository) IncrementSentCount(ctx context.Context, minuteKey string, delta int) error {
	key := sentCountKeyPrefix + minuteKey

	pipe := r.client.TxPipeline()
	pipe.IncrBy(ctx, key, int64(delta))
	pipe.Expire(ctx, key, sentCountTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRedisConnection, err)
	}
	return nil
}

func (r *firedRepository) GetSentCount(ctx context.Context, minuteKey string) (int, error) {
	key := sentCountKeyPrefix + minuteKey

	val, err := r.client.Get(ctx, key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %w", ErrRedisConnection, err)
	}

	return val, nil
}
