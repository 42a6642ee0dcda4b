package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"dairy-service/internal/domain"
)

// ProductCache stores catalog records without their availability, which
// changes on every order and is always read from the database.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{client: client, ttl: ttl}
}

func productKey(id uint64) string {
	return fmt.Sprintf("product:%d", id)
}

// Get returns (nil, nil) on a cache miss.
func (c *ProductCache) Get(ctx context.Context, id uint64) (*domain.Product, error) {
	cached, err := c.client.Get(ctx, productKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var p domain.Product
	if err := json.Unmarshal([]byte(cached), &p); err != nil {
		return nil, fmt.Errorf("decode cached product %d: %w", id, err)
	}
	return &p, nil
}

func (c *ProductCache) Set(ctx context.Context, p *domain.Product) error {
	stripped := *p
	stripped.Availability = nil
	data, err := json.Marshal(stripped)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, productKey(p.ID), data, c.ttl).Err()
}

func (c *ProductCache) Invalidate(ctx context.Context, id uint64) error {
	return c.client.Del(ctx, productKey(id)).Err()
}
