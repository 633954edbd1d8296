package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pvoronin/busbooking/config"
	"github.com/pvoronin/busbooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

const reconcilerLockKey = "lock:reconciler"

type RedisCache struct {
	client    *redis.Client
	searchTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, searchTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:    redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		searchTTL: searchTTL,
	}
}

// NewRedisCacheWithClient is used by tests to inject a mock client.
func NewRedisCacheWithClient(client *redis.Client, searchTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, searchTTL: searchTTL}
}

func (c *RedisCache) GetSearchResults(ctx context.Context, key string) ([]domain.TripView, error) {
	data, err := c.client.Get(ctx, searchKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var views []domain.TripView
	if err := json.Unmarshal(data, &views); err != nil {
		return nil, err
	}
	return views, nil
}

func (c *RedisCache) SetSearchResults(ctx context.Context, key string, views []domain.TripView) error {
	payload, err := json.Marshal(views)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, searchKey(key), payload, c.searchTTL).Err()
}

// AcquireRunLock guards the expiry sweep so overlapping scheduler invocations
// do not run two sweeps at once. The TTL bounds how long a crashed run can
// hold the lock.
func (c *RedisCache) AcquireRunLock(ctx context.Context, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, reconcilerLockKey, "locked", ttl).Result()
}

func (c *RedisCache) ReleaseRunLock(ctx context.Context) error {
	return c.client.Del(ctx, reconcilerLockKey).Err()
}

func searchKey(key string) string {
	return fmt.Sprintf("cache:search:%s", key)
}
