package cache

import (
	"context"
	"errors"
	"testing"
)

// fakeKeyspace records flush patterns and can fail selected tags.
type fakeKeyspace struct {
	patterns []string
	failAll  bool
}

func (f *fakeKeyspace) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	f.patterns = append(f.patterns, pattern)
	if f.failAll {
		return 0, errors.New("connection refused")
	}
	return 1, nil
}

func TestNotifyFlushesEachTag(t *testing.T) {
	ks := &fakeKeyspace{}
	n := NewNotifier(ks, nil)

	n.Notify(context.Background(), []string{CollectionTag, TopicTag("intro-to-x")})

	want := []string{"content:topics*", "content:topic:intro-to-x*"}
	if len(ks.patterns) != len(want) {
		t.Fatalf("expected %d flushes, got %d", len(want), len(ks.patterns))
	}
	for i, p := range want {
		if ks.patterns[i] != p {
			t.Errorf("flush %d: expected %q, got %q", i, p, ks.patterns[i])
		}
	}
}

func TestNotifySurvivesCacheOutage(t *testing.T) {
	ks := &fakeKeyspace{failAll: true}
	n := NewNotifier(ks, nil)

	// Must not panic or propagate: cache staleness is acceptable, a failed
	// ingest is not.
	n.Notify(context.Background(), []string{CollectionTag, TopicTag("intro-to-x")})

	if len(ks.patterns) != 2 {
		t.Errorf("every tag should be attempted independently, got %d attempts", len(ks.patterns))
	}
}
