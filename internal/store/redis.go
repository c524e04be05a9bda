package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pilot-net/outage-counter/internal/config"
	"github.com/pilot-net/outage-counter/pkg/types"
)

const (
	// Key suffixes under the configured prefix
	keyOutageDates = "outage_dates"

	// Scalar written by the Lita handler; no longer maintained, only cleared.
	keyLegacyLastOutage = "last_outage"
)

// RedisStore keeps outage dates in a Redis set.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL, prefix string, logger *slog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, config.RedisConnectionTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewRedisStoreFromClient(client, prefix, logger), nil
}

// NewRedisStoreFromClient wraps an existing client. An empty prefix selects
// config.DefaultRedisKeyPrefix.
func NewRedisStoreFromClient(client *redis.Client, prefix string, logger *slog.Logger) *RedisStore {
	if prefix == "" {
		prefix = config.DefaultRedisKeyPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (s *RedisStore) datesKey() string {
	return s.prefix + keyOutageDates
}

// AddDate adds the day to the set.
func (s *RedisStore) AddDate(ctx context.Context, day time.Time) error {
	if err := s.client.SAdd(ctx, s.datesKey(), types.FormatDate(day)).Err(); err != nil {
		return fmt.Errorf("adding outage date: %w", err)
	}
	return nil
}

// RemoveDate removes the day from the set.
func (s *RedisStore) RemoveDate(ctx context.Context, day time.Time) error {
	if err := s.client.SRem(ctx, s.datesKey(), types.FormatDate(day)).Err(); err != nil {
		return fmt.Errorf("removing outage date: %w", err)
	}
	return nil
}

// ListDates returns all members of the set. Members that are not dates are
// skipped and logged.
func (s *RedisStore) ListDates(ctx context.Context) ([]time.Time, error) {
	members, err := s.client.SMembers(ctx, s.datesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("listing outage dates: %w", err)
	}

	dates := make([]time.Time, 0, len(members))
	for _, m := range members {
		d, err := types.ParseDate(m)
		if err != nil {
			s.logger.Warn("skipping malformed outage date", "member", m, "error", err)
			continue
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// Clear deletes the set and the legacy last-outage key in one command.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.datesKey(), s.prefix+keyLegacyLastOutage).Err(); err != nil {
		return fmt.Errorf("clearing outage dates: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
