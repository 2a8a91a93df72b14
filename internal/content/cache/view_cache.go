package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/contenthub/content-sync-platform/internal/content"
	"github.com/contenthub/content-sync-platform/pkg/metrics"
	pkgredis "github.com/contenthub/content-sync-platform/pkg/redis"
)

// client is the subset of the Redis client the view cache needs.
type client interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Loader loads topic views from the store on cache misses.
type Loader interface {
	TopicBySlug(ctx context.Context, slug string) (*content.TopicView, error)
	Topics(ctx context.Context, limit, offset int) ([]content.TopicSummary, error)
}

// ViewCache serves topic views from Redis, falling back to the store.
// Concurrent misses for the same key are collapsed with singleflight so a
// freshly invalidated hot topic triggers one store read, not a stampede.
type ViewCache struct {
	client  client
	loader  Loader
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewViewCache creates a ViewCache with the given TTL. m may be nil.
func NewViewCache(c client, loader Loader, ttl time.Duration, m *metrics.Metrics) *ViewCache {
	return &ViewCache{
		client:  c,
		loader:  loader,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "view-cache"),
	}
}

// TopicBySlug returns the cached view for slug, loading and caching it on a
// miss.
func (c *ViewCache) TopicBySlug(ctx context.Context, slug string) (*content.TopicView, error) {
	key := keyPrefix + TopicTag(slug)
	if data, err := c.client.Get(ctx, key); err == nil {
		var view content.TopicView
		if err := json.Unmarshal([]byte(data), &view); err == nil {
			c.countRead("hit")
			return &view, nil
		}
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
	} else if !pkgredis.IsNilError(err) {
		c.logger.Error("cache get failed", "key", key, "error", err)
	}
	c.countRead("miss")

	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		view, err := c.loader.TopicBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, view)
		return view, nil
	})
	if err != nil {
		return nil, err
	}
	return val.(*content.TopicView), nil
}

// Topics returns a cached listing page, loading and caching it on a miss.
func (c *ViewCache) Topics(ctx context.Context, limit, offset int) ([]content.TopicSummary, error) {
	key := fmt.Sprintf("%s%s:limit=%d:offset=%d", keyPrefix, CollectionTag, limit, offset)
	if data, err := c.client.Get(ctx, key); err == nil {
		var summaries []content.TopicSummary
		if err := json.Unmarshal([]byte(data), &summaries); err == nil {
			c.countRead("hit")
			return summaries, nil
		}
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
	} else if !pkgredis.IsNilError(err) {
		c.logger.Error("cache get failed", "key", key, "error", err)
	}
	c.countRead("miss")

	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		summaries, err := c.loader.Topics(ctx, limit, offset)
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, summaries)
		return summaries, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]content.TopicSummary), nil
}

// store writes a value to the cache; failures degrade to uncached reads.
func (c *ViewCache) store(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

func (c *ViewCache) countRead(status string) {
	if c.metrics != nil {
		c.metrics.TopicReadsTotal.WithLabelValues(status).Inc()
	}
}
