package balance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"edufees/models"

	"github.com/go-redis/redis/v8"
)

// Cache holds recently read balances. A miss is (nil, nil).
type Cache interface {
	Get(ctx context.Context, key string) (*models.StudentBalance, error)
	Set(ctx context.Context, key string, b *models.StudentBalance) error
	Delete(ctx context.Context, key string) error
}

// CacheKey is "balance:<tenant>:<student>:<session>".
func CacheKey(tenantID, studentID, session string) string {
	return fmt.Sprintf("balance:%s:%s:%s", tenantID, studentID, session)
}

// RedisCache stores balances as JSON with a TTL.
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{Client: client, TTL: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*models.StudentBalance, error) {
	raw, err := c.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var b models.StudentBalance
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("corrupt cached balance %s: %w", key, err)
	}
	return &b, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, b *models.StudentBalance) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, key, raw, c.TTL).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// NopCache disables caching.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*models.StudentBalance, error) { return nil, nil }
func (NopCache) Set(context.Context, string, *models.StudentBalance) error   { return nil }
func (NopCache) Delete(context.Context, string) error                        { return nil }
