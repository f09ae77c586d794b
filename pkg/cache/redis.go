package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"shortlink/pkg/storage"
)

type MappingCacheInterface interface {
	Get(ctx context.Context, code string) (*storage.Mapping, error)
	Set(ctx context.Context, code string, mapping *storage.Mapping, ttl time.Duration) error
	Delete(ctx context.Context, code string) error
}

// MappingCache caches resolved mappings for the redirect hot path. It is an
// optional layer: the service behaves identically when constructed without
// one. Entries are removed on update and delete so the cache never serves a
// mapping the store no longer holds.
type MappingCache struct {
	client *redis.Client
}

func NewMappingCache(client *redis.Client) *MappingCache {
	return &MappingCache{client: client}
}

func (c *MappingCache) Get(ctx context.Context, code string) (*storage.Mapping, error) {
	key := "mapping:" + code
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var m storage.Mapping
	if err := json.Unmarshal([]byte(val), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *MappingCache) Set(ctx context.Context, code string, mapping *storage.Mapping, ttl time.Duration) error {
	key := "mapping:" + code
	data, err := json.Marshal(mapping)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *MappingCache) Delete(ctx context.Context, code string) error {
	key := "mapping:" + code
	return c.client.Del(ctx, key).Err()
}
