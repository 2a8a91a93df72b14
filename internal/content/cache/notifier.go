// Package cache holds the Redis-backed reader cache for topic views and the
// invalidation notifier that marks cached readers stale after a successful
// ingest. Cache keys are grouped under tags: "topics" covers every listing
// view, "topic:<slug>" covers the single-item view for one slug.
package cache

import (
	"context"
	"log/slog"

	"github.com/contenthub/content-sync-platform/pkg/metrics"
)

const keyPrefix = "content:"

// CollectionTag invalidates every listing and search view.
const CollectionTag = "topics"

// TopicTag returns the tag covering the single-item view for slug.
func TopicTag(slug string) string {
	return "topic:" + slug
}

// keyspace is the subset of the Redis client the notifier needs.
type keyspace interface {
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Notifier propagates cache-invalidation signals. Delivery is best-effort:
// a failed invalidation leaves a bounded staleness window, which is
// acceptable; it never fails the ingest that triggered it.
type Notifier struct {
	redis   keyspace
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewNotifier creates a Notifier over the given Redis keyspace. m may be nil.
func NewNotifier(redis keyspace, m *metrics.Metrics) *Notifier {
	return &Notifier{
		redis:   redis,
		metrics: m,
		logger:  slog.Default().With("component", "cache-notifier"),
	}
}

// Notify invalidates the cached readers for each tag. Every tag is attempted
// independently; failures are logged and counted, never propagated.
func (n *Notifier) Notify(ctx context.Context, tags []string) {
	for _, tag := range tags {
		deleted, err := n.redis.FlushByPattern(ctx, keyPrefix+tag+"*")
		if err != nil {
			n.logger.Error("cache invalidation failed", "tag", tag, "error", err)
			n.count("error")
			continue
		}
		n.logger.Debug("cache invalidated", "tag", tag, "keys_deleted", deleted)
		n.count("ok")
	}
}

func (n *Notifier) count(result string) {
	if n.metrics != nil {
		n.metrics.CacheInvalidations.WithLabelValues(result).Inc()
	}
}
