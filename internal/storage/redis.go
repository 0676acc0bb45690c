package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore handles interactions with Redis for check deduplication
// and failure bookkeeping.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string) *RedisStore {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return &RedisStore{client: rdb}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// MarkChecked sets a key with a TTL so the next scheduled run skips
// the URL.
func (s *RedisStore) MarkChecked(ctx context.Context, url string, ttl time.Duration) error {
	key := fmt.Sprintf("checked:%s", url)
	return s.client.Set(ctx, key, "1", ttl).Err()
}

// IsRecentlyChecked reports whether a URL was checked within the TTL.
func (s *RedisStore) IsRecentlyChecked(ctx context.Context, url string) (bool, error) {
	key := fmt.Sprintf("checked:%s", url)
	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return val == 1, nil
}

// IncrementFailCount bumps the consecutive-failure counter for a URL.
func (s *RedisStore) IncrementFailCount(ctx context.Context, url string) (int64, error) {
	key := fmt.Sprintf("fail:%s", url)
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	// Keep the counter from living forever after the URL goes quiet
	s.client.Expire(ctx, key, 7*24*time.Hour)
	return count, nil
}

// ResetFailCount clears the failure counter after a successful check.
func (s *RedisStore) ResetFailCount(ctx context.Context, url string) error {
	key := fmt.Sprintf("fail:%s", url)
	return s.client.Del(ctx, key).Err()
}
