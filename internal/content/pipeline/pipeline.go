// Package pipeline orchestrates one ingest attempt end to end: start the job
// record, run the content synchronization, settle the job in exactly one
// terminal state, then fire the cache-invalidation and audit side effects.
// Authentication and payload validation happen before the pipeline runs, so
// every run leaves a durable job row.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/contenthub/content-sync-platform/internal/content"
	"github.com/contenthub/content-sync-platform/internal/content/audit"
	"github.com/contenthub/content-sync-platform/internal/content/cache"
	apperrors "github.com/contenthub/content-sync-platform/pkg/errors"
	"github.com/contenthub/content-sync-platform/pkg/metrics"
	"github.com/contenthub/content-sync-platform/pkg/resilience"
	"github.com/contenthub/content-sync-platform/pkg/tracing"
)

// Synchronizer applies an ingest payload transactionally and returns the
// topic ID.
type Synchronizer interface {
	Apply(ctx context.Context, p *content.IngestPayload) (string, error)
}

// JobTracker persists ingest job records.
type JobTracker interface {
	Start(ctx context.Context, topicSlug string, payload []byte) (string, error)
	FinishSuccess(ctx context.Context, id string) error
	FinishFailure(ctx context.Context, id string, errorMessage string) error
}

// Notifier propagates cache-invalidation tags, best-effort.
type Notifier interface {
	Notify(ctx context.Context, tags []string)
}

// Auditor records terminal ingest outcomes.
type Auditor interface {
	Record(ctx context.Context, ev audit.Event)
}

// RequestMeta carries request provenance into the audit trail.
type RequestMeta struct {
	Actor      string
	RemoteAddr string
}

// Result is the caller-visible outcome of a successful ingest.
type Result struct {
	TopicID string
	JobID   string
}

// Pipeline runs ingest attempts. There is no retry loop: callers re-submit
// the same signed payload, which is safe because synchronization is
// idempotent.
type Pipeline struct {
	sync        Synchronizer
	jobs        JobTracker
	notifier    Notifier
	auditor     Auditor
	syncTimeout time.Duration
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// New creates a Pipeline. m may be nil.
func New(sync Synchronizer, jobs JobTracker, notifier Notifier, auditor Auditor, syncTimeout time.Duration, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		sync:        sync,
		jobs:        jobs,
		notifier:    notifier,
		auditor:     auditor,
		syncTimeout: syncTimeout,
		metrics:     m,
		logger:      slog.Default().With("component", "ingest-pipeline"),
	}
}

// Run executes one ingest attempt. rawPayload is the received body snapshot
// stored on the job row for forensics and replay.
func (p *Pipeline) Run(ctx context.Context, payload *content.IngestPayload, rawPayload []byte, meta RequestMeta) (res *Result, err error) {
	start := time.Now()
	slug := payload.Topic.Slug

	// A client disconnect after the job row exists must not abort the
	// transaction: the job row documents what actually happened to the
	// data, whether or not anyone is still listening.
	opCtx := context.WithoutCancel(ctx)
	opCtx, span := tracing.StartSpan(opCtx, "ingest", slug)
	span.SetAttr("slug", slug)
	defer func() {
		span.End()
		span.Log()
	}()

	jobID, startErr := p.jobs.Start(opCtx, slug, rawPayload)
	if startErr != nil {
		return nil, fmt.Errorf("starting ingest job: %w", startErr)
	}

	// Backstop: whatever unwinds out of the synchronization below, the job
	// reaches exactly one terminal state before Run returns.
	terminal := false
	defer func() {
		if terminal {
			return
		}
		msg := "ingest aborted"
		if r := recover(); r != nil {
			msg = fmt.Sprintf("ingest panic: %v", r)
		} else if err != nil {
			msg = err.Error()
		}
		p.settleFailure(opCtx, jobID, slug, msg, meta, start)
		res = nil
		err = apperrors.New(apperrors.ErrInternal, http.StatusInternalServerError, msg)
	}()

	topicID, syncErr := p.applySync(opCtx, payload)
	if syncErr != nil {
		terminal = true
		p.settleFailure(opCtx, jobID, slug, syncErr.Error(), meta, start)
		return nil, apperrors.New(apperrors.ErrSyncFailed, http.StatusInternalServerError, syncErr.Error())
	}

	terminal = true
	if ferr := p.jobs.FinishSuccess(opCtx, jobID); ferr != nil {
		// Content is committed; the stuck "processing" row is an
		// operational anomaly to alert on, not a reason to fail the caller.
		p.logger.Error("failed to complete ingest job record", "job_id", jobID, "error", ferr)
	}
	p.countJob("completed")

	p.notifier.Notify(opCtx, []string{cache.CollectionTag, cache.TopicTag(slug)})
	p.auditor.Record(opCtx, audit.Event{
		JobID:      jobID,
		TopicSlug:  slug,
		Outcome:    "completed",
		Actor:      meta.Actor,
		RemoteAddr: meta.RemoteAddr,
		DurationMS: time.Since(start).Milliseconds(),
	})

	p.logger.Info("ingest completed",
		"slug", slug,
		"topic_id", topicID,
		"job_id", jobID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &Result{TopicID: topicID, JobID: jobID}, nil
}

// applySync runs the synchronizer bounded by the configured timeout and
// converts panics into errors so the job settles either way.
func (p *Pipeline) applySync(ctx context.Context, payload *content.IngestPayload) (string, error) {
	syncStart := time.Now()
	syncCtx, span := tracing.StartChildSpan(ctx, "content-sync")
	defer span.End()

	var topicID string
	err := resilience.WithTimeout(syncCtx, p.syncTimeout, "content-sync", func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("synchronizer panic: %v", r)
			}
		}()
		topicID, err = p.sync.Apply(ctx, payload)
		return err
	})
	if p.metrics != nil {
		p.metrics.SyncDuration.Observe(time.Since(syncStart).Seconds())
	}
	if err != nil {
		return "", err
	}
	return topicID, nil
}

// settleFailure records the failed terminal state and its audit event.
func (p *Pipeline) settleFailure(ctx context.Context, jobID, slug, msg string, meta RequestMeta, start time.Time) {
	if ferr := p.jobs.FinishFailure(ctx, jobID, msg); ferr != nil {
		p.logger.Error("failed to mark ingest job failed", "job_id", jobID, "error", ferr)
	}
	p.countJob("failed")
	p.auditor.Record(ctx, audit.Event{
		JobID:      jobID,
		TopicSlug:  slug,
		Outcome:    "failed",
		Actor:      meta.Actor,
		RemoteAddr: meta.RemoteAddr,
		DurationMS: time.Since(start).Milliseconds(),
	})
	p.logger.Error("ingest failed", "slug", slug, "job_id", jobID, "error", msg)
}

func (p *Pipeline) countJob(status string) {
	if p.metrics != nil {
		p.metrics.IngestJobsTotal.WithLabelValues(status).Inc()
	}
}
