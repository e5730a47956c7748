package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"delegate-portal/internal/models"
	"delegate-portal/internal/service"

	"go.uber.org/zap"
)

// CatalogCache serves catalog lookups from Redis and falls through to the
// wrapped provider for codes it has not seen. Redis errors degrade to the
// provider.
type CatalogCache struct {
	redis *RedisClient
	inner service.CatalogProvider
	ttl   time.Duration
	log   *zap.Logger
}

func NewCatalogCache(r *RedisClient, inner service.CatalogProvider, ttl time.Duration, log *zap.Logger) *CatalogCache {
	return &CatalogCache{redis: r, inner: inner, ttl: ttl, log: log}
}

func catalogKey(code string) string { return fmt.Sprintf("catalog:item:%s", code) }

func (c *CatalogCache) GetByCodes(ctx context.Context, codes []string) (map[string]models.CatalogItem, error) {
	out := make(map[string]models.CatalogItem, len(codes))
	if len(codes) == 0 {
		return out, nil
	}

	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = catalogKey(code)
	}

	var missing []string
	vals, err := c.redis.MGetBytes(ctx, keys...)
	if err != nil {
		c.log.Warn("catalog cache read failed", zap.Error(err))
		missing = codes
	} else {
		for i, raw := range vals {
			var it models.CatalogItem
			if raw == nil || json.Unmarshal(raw, &it) != nil {
				missing = append(missing, codes[i])
				continue
			}
			out[codes[i]] = it
		}
	}

	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := c.inner.GetByCodes(ctx, missing)
	if err != nil {
		return nil, err
	}

	entries := make(map[string][]byte, len(fetched))
	for code, it := range fetched {
		out[code] = it
		if raw, err := json.Marshal(it); err == nil {
			entries[catalogKey(code)] = raw
		}
	}
	if err := c.redis.SetMany(ctx, entries, c.ttl); err != nil {
		c.log.Warn("catalog cache write failed", zap.Error(err))
	}
	return out, nil
}

// Invalidate drops cached entries, e.g. after a price change.
func (c *CatalogCache) Invalidate(ctx context.Context, codes ...string) error {
	if len(codes) == 0 {
		return nil
	}
	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = catalogKey(code)
	}
	return c.redis.Del(ctx, keys...)
}
