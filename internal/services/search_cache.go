package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Arden28/flygasal-api/internal/models"
)

const searchCachePrefix = "flights:search:"

// SearchCache stores normalized search results. Misses and cache failures
// both report ok=false.
type SearchCache interface {
	Get(ctx context.Context, key string) ([]models.Offer, bool)
	Set(ctx context.Context, key string, offers []models.Offer)
}

// redisKV is the subset of *redis.Client the cache uses
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisSearchCache keeps search results in redis for a fixed TTL
type RedisSearchCache struct {
	client redisKV
	ttl    time.Duration
	logger *logrus.Logger
}

// NewRedisSearchCache creates a cache over client
func NewRedisSearchCache(client redisKV, ttl time.Duration, logger *logrus.Logger) *RedisSearchCache {
	return &RedisSearchCache{client: client, ttl: ttl, logger: logger}
}

// SearchCacheKey hashes the provider search criteria
func SearchCacheKey(criteria any) (string, error) {
	b, err := json.Marshal(criteria)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return searchCachePrefix + hex.EncodeToString(sum[:]), nil
}

func (c *RedisSearchCache) Get(ctx context.Context, key string) ([]models.Offer, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).WithField("key", key).Warn("Search cache read failed")
		}
		return nil, false
	}

	var offers []models.Offer
	if err := json.Unmarshal(data, &offers); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Discarding undecodable search cache entry")
		return nil, false
	}
	return offers, true
}

func (c *RedisSearchCache) Set(ctx context.Context, key string, offers []models.Offer) {
	data, err := json.Marshal(offers)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to encode search results for cache")
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Search cache write failed")
	}
}
