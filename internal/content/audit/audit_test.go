package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/contenthub/content-sync-platform/pkg/kafka"
)

type fakePublisher struct {
	events []kafka.Event
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, event kafka.Event) error {
	f.events = append(f.events, event)
	return f.err
}

func TestRecordKeysBySlug(t *testing.T) {
	pub := &fakePublisher{}
	r := NewRecorder(pub, nil)

	r.Record(context.Background(), Event{
		JobID:     "job-1",
		TopicSlug: "intro-to-x",
		Outcome:   "completed",
	})

	if len(pub.events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(pub.events))
	}
	if pub.events[0].Key != "intro-to-x" {
		t.Errorf("events must be keyed by slug, got %q", pub.events[0].Key)
	}
	ev, ok := pub.events[0].Value.(Event)
	if !ok {
		t.Fatalf("unexpected event value type %T", pub.events[0].Value)
	}
	if ev.OccurredAt.IsZero() {
		t.Error("Record should stamp OccurredAt when unset")
	}
}

func TestRecordKeepsCallerTimestamp(t *testing.T) {
	pub := &fakePublisher{}
	r := NewRecorder(pub, nil)

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	r.Record(context.Background(), Event{TopicSlug: "intro-to-x", OccurredAt: at})

	ev := pub.events[0].Value.(Event)
	if !ev.OccurredAt.Equal(at) {
		t.Errorf("caller timestamp replaced: %v", ev.OccurredAt)
	}
}

func TestRecordSwallowsPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker unavailable")}
	r := NewRecorder(pub, nil)

	// Must not panic or propagate: the audit trail is best-effort.
	r.Record(context.Background(), Event{TopicSlug: "intro-to-x", Outcome: "failed"})

	if len(pub.events) != 1 {
		t.Errorf("publish should still be attempted, got %d", len(pub.events))
	}
}
