package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"venuepos/backend/internal/domain"
)

type RedisReceiptCache struct {
	client *redis.Client
}

func NewRedisReceiptCache(addr string, password string, db int) *RedisReceiptCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisReceiptCache{client: client}
}

func (c *RedisReceiptCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisReceiptCache) Close() error {
	return c.client.Close()
}

func (c *RedisReceiptCache) Get(ctx context.Context, receiptNo string) (*domain.Sale, bool, error) {
	val, err := c.client.Get(ctx, key(receiptNo)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var sale domain.Sale
	if err := json.Unmarshal([]byte(val), &sale); err != nil {
		return nil, false, err
	}
	return &sale, true, nil
}

func (c *RedisReceiptCache) Set(ctx context.Context, receiptNo string, sale *domain.Sale, ttl time.Duration) error {
	if sale == nil {
		return nil
	}
	payload, err := json.Marshal(sale)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(receiptNo), payload, ttl).Err()
}

func key(receiptNo string) string {
	return "receipt:" + receiptNo
}
