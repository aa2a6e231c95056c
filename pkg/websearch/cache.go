package websearch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"finagent-be/internal/pkg/logger"
	"finagent-be/internal/pkg/metrics"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const cacheName = "websearch"

// CachedSearcher keeps results in process memory and, when a redis client is
// given, in redis as well so restarts and sibling instances share them.
type CachedSearcher struct {
	inner   Searcher
	local   *cache.Cache
	redis   *redis.Client
	ttl     time.Duration
	logger  logger.ILogger
	metrics *metrics.Collector
}

func NewCachedSearcher(inner Searcher, rdb *redis.Client, ttl time.Duration, log logger.ILogger, collector *metrics.Collector) *CachedSearcher {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedSearcher{
		inner:   inner,
		local:   cache.New(ttl, 2*ttl),
		redis:   rdb,
		ttl:     ttl,
		logger:  log,
		metrics: collector,
	}
}

func (c *CachedSearcher) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	key := cacheKey(query, maxResults)

	if v, ok := c.local.Get(key); ok {
		c.metrics.RecordCacheLookup(cacheName, true)
		return v.([]Result), nil
	}

	if c.redis != nil {
		data, err := c.redis.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var results []Result
			if jsonErr := json.Unmarshal(data, &results); jsonErr == nil {
				c.local.Set(key, results, cache.DefaultExpiration)
				c.metrics.RecordCacheLookup(cacheName, true)
				return results, nil
			}
		case err != redis.Nil:
			c.logger.Warn("WEB_SEARCH", "Redis lookup failed", map[string]interface{}{"error": err.Error()})
		}
	}
	c.metrics.RecordCacheLookup(cacheName, false)

	results, err := c.inner.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}

	c.local.Set(key, results, cache.DefaultExpiration)
	if c.redis != nil {
		if data, err := json.Marshal(results); err == nil {
			if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
				c.logger.Warn("WEB_SEARCH", "Redis store failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}
	return results, nil
}

func cacheKey(query string, maxResults int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s", maxResults, strings.ToLower(strings.TrimSpace(query)))))
	return "websearch:" + hex.EncodeToString(sum[:16])
}
