// Package audit records "who did what, when, from where" for every ingest
// attempt that reaches a terminal job state. Events go to a Kafka topic as a
// side effect; publish failures are logged and never affect the ingest
// result.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/contenthub/content-sync-platform/pkg/kafka"
	"github.com/contenthub/content-sync-platform/pkg/metrics"
)

// Event is one audit record.
type Event struct {
	JobID      string    `json:"job_id"`
	TopicSlug  string    `json:"topic_slug"`
	Outcome    string    `json:"outcome"`
	Actor      string    `json:"actor"`
	RemoteAddr string    `json:"remote_addr"`
	DurationMS int64     `json:"duration_ms"`
	OccurredAt time.Time `json:"occurred_at"`
}

// publisher is the subset of the Kafka producer the recorder needs.
type publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Recorder publishes audit events to Kafka.
type Recorder struct {
	producer publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewRecorder creates a Recorder over the given producer. m may be nil.
func NewRecorder(producer publisher, m *metrics.Metrics) *Recorder {
	return &Recorder{
		producer: producer,
		metrics:  m,
		logger:   slog.Default().With("component", "audit"),
	}
}

// Record publishes one event, keyed by topic slug so a topic's audit trail
// stays ordered within a partition. Failures are logged only.
func (r *Recorder) Record(ctx context.Context, ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if err := r.producer.Publish(ctx, kafka.Event{Key: ev.TopicSlug, Value: ev}); err != nil {
		r.logger.Error("audit publish failed",
			"job_id", ev.JobID,
			"slug", ev.TopicSlug,
			"outcome", ev.Outcome,
			"error", err,
		)
		r.count("error")
		return
	}
	r.count("ok")
}

func (r *Recorder) count(result string) {
	if r.metrics != nil {
		r.metrics.AuditEventsTotal.WithLabelValues(result).Inc()
	}
}
