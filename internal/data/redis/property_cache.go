// Package redis caches property lookups in front of the property read model.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/kerya-reservation-engine/internal/domain/property"
)

const keyPrefix = "property:"

// Client is the subset of the Redis client the cache needs
type Client interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// CachedCatalog is a read-through cache over a property.Catalog. Entries expire after the
// TTL, which bounds how stale a price or capacity can be. Upserts invalidate the entry.
type CachedCatalog struct {
	next   property.Catalog
	client Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ property.Catalog = (*CachedCatalog)(nil)

func NewCachedCatalog(logger *slog.Logger, next property.Catalog, client Client, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func cacheKey(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}

// GetByID serves from Redis when possible. Cache failures fall through to the catalog.
func (c *CachedCatalog) GetByID(ctx context.Context, id int64) (*property.Property, error) {
	key := cacheKey(id)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p property.Property
		if err := json.Unmarshal(raw, &p); err == nil {
			return &p, nil
		}
		c.logger.Warn("Discarding undecodable cached property", "property_id", id)
	case !errors.Is(err, goredis.Nil):
		c.logger.Warn("Property cache read failed", "property_id", id, "error", err)
	}

	p, err := c.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(p)
	if err != nil {
		c.logger.Warn("Failed to encode property for cache", "property_id", id, "error", err)
		return p, nil
	}
	if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
		c.logger.Warn("Property cache write failed", "property_id", id, "error", err)
	}
	return p, nil
}

// Upsert writes through to the catalog and drops the cached copy
func (c *CachedCatalog) Upsert(ctx context.Context, p *property.Property) error {
	if err := c.next.Upsert(ctx, p); err != nil {
		return err
	}
	c.Invalidate(ctx, p.ID)
	return nil
}

func (c *CachedCatalog) Invalidate(ctx context.Context, id int64) {
	if err := c.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		c.logger.Warn("Property cache invalidation failed", "property_id", id, "error", err)
	}
}
