package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/contenthub/content-sync-platform/internal/content"
)

// fakeClient is an in-memory stand-in for the Redis client.
type fakeClient struct {
	values map[string]string
	sets   int
}

func newFakeClient() *fakeClient {
	return &fakeClient{values: make(map[string]string)}
}

func (f *fakeClient) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.values[key] = string(value.([]byte))
	f.sets++
	return nil
}

// fakeLoader counts store reads.
type fakeLoader struct {
	loads int
}

func (f *fakeLoader) TopicBySlug(ctx context.Context, slug string) (*content.TopicView, error) {
	f.loads++
	return &content.TopicView{
		ID:       "topic-1",
		Slug:     slug,
		Title:    "Intro",
		FAQItems: []content.FAQItemView{},
	}, nil
}

func (f *fakeLoader) Topics(ctx context.Context, limit, offset int) ([]content.TopicSummary, error) {
	f.loads++
	return []content.TopicSummary{{ID: "topic-1", Slug: "intro-to-x", Title: "Intro"}}, nil
}

func TestTopicBySlugCachesMisses(t *testing.T) {
	client := newFakeClient()
	loader := &fakeLoader{}
	vc := NewViewCache(client, loader, time.Minute, nil)
	ctx := context.Background()

	first, err := vc.TopicBySlug(ctx, "intro-to-x")
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	if loader.loads != 1 {
		t.Fatalf("expected 1 store read, got %d", loader.loads)
	}
	if client.sets != 1 {
		t.Fatalf("expected the miss to populate the cache, sets=%d", client.sets)
	}

	second, err := vc.TopicBySlug(ctx, "intro-to-x")
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if loader.loads != 1 {
		t.Errorf("second read should hit the cache, store reads=%d", loader.loads)
	}
	if first.ID != second.ID || first.Slug != second.Slug {
		t.Errorf("cached view differs: %+v vs %+v", first, second)
	}
}

func TestTopicsListingCacheKeyIncludesPage(t *testing.T) {
	client := newFakeClient()
	loader := &fakeLoader{}
	vc := NewViewCache(client, loader, time.Minute, nil)
	ctx := context.Background()

	if _, err := vc.Topics(ctx, 10, 0); err != nil {
		t.Fatalf("listing read: %v", err)
	}
	if _, err := vc.Topics(ctx, 10, 10); err != nil {
		t.Fatalf("listing read: %v", err)
	}
	if loader.loads != 2 {
		t.Errorf("distinct pages must not share a cache entry, store reads=%d", loader.loads)
	}

	// Both keys sit under the collection tag, so one invalidation covers
	// every page.
	for key := range client.values {
		if !strings.HasPrefix(key, keyPrefix+CollectionTag) {
			t.Errorf("listing key %q is outside the collection tag", key)
		}
	}
}
