package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/YelzhanWeb/lunchbox/internal/adapter/logger"
	"github.com/YelzhanWeb/lunchbox/internal/domain"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
)

const orgKeyPrefix = "lunchbox:org:"

// Client is the part of *redis.Client the cache needs.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// OrganizationCache reads organizations through Redis. Redis failures fall
// back to the record store and are only logged.
type OrganizationCache struct {
	next   interfaces.OrganizationRepository
	rdb    Client
	ttl    time.Duration
	logger logger.Logger
}

func NewOrganizationCache(next interfaces.OrganizationRepository, rdb Client, ttl time.Duration, logger logger.Logger) *OrganizationCache {
	return &OrganizationCache{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func (c *OrganizationCache) FindByCode(ctx context.Context, code string) (*domain.Organization, error) {
	key := orgKeyPrefix + code

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var org domain.Organization
		jsonErr := json.Unmarshal(raw, &org)
		if jsonErr == nil {
			return &org, nil
		}
		c.logger.Warn("cache_decode_failed", "Discarding unreadable cached organization", "",
			map[string]interface{}{"key": key, "error": jsonErr.Error()})
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("cache_get_failed", "Redis read failed, using record store", "",
			map[string]interface{}{"key": key, "error": err.Error()})
	}

	org, err := c.next.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if body, err := json.Marshal(org); err == nil {
		if err := c.rdb.Set(ctx, key, body, c.ttl).Err(); err != nil {
			c.logger.Warn("cache_set_failed", "Redis write failed", "",
				map[string]interface{}{"key": key, "error": err.Error()})
		}
	}
	return org, nil
}

var _ interfaces.OrganizationRepository = (*OrganizationCache)(nil)
