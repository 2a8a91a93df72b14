// Package jobs tracks the lifecycle of ingest attempts. Every attempt that
// passes authentication gets one ingest_jobs row, created in "processing"
// state before any content mutation and moved to exactly one terminal state
// afterwards. The row stores the raw payload snapshot for forensics and the
// failure message when synchronization fails. A row stuck in "processing" is
// an operational anomaly, never an expected outcome.
package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/contenthub/content-sync-platform/pkg/errors"
	"github.com/contenthub/content-sync-platform/pkg/postgres"
)

// Status is an ingest job lifecycle state.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job is one ingest attempt's durable record.
type Job struct {
	ID          string     `json:"id"`
	TopicSlug   string     `json:"topicSlug"`
	Status      Status     `json:"status"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Tracker persists ingest job records in PostgreSQL.
//
// It requires the ingest_jobs table from scripts/schema.sql.
type Tracker struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewTracker creates a Tracker backed by the given database.
func NewTracker(db *postgres.Client) *Tracker {
	return &Tracker{
		db:     db,
		logger: slog.Default().With("component", "job-tracker"),
	}
}

// Start inserts a new job row in "processing" state and returns its ID. It
// must succeed before any content mutation is attempted so a crash mid-sync
// always leaves a trace.
func (t *Tracker) Start(ctx context.Context, topicSlug string, payload []byte) (string, error) {
	var id string
	err := t.db.DB.QueryRowContext(ctx,
		`INSERT INTO ingest_jobs (topic_slug, status, payload)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		topicSlug, StatusProcessing, payload,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("inserting ingest job: %w", err)
	}
	t.logger.Info("ingest job started", "job_id", id, "slug", topicSlug)
	return id, nil
}

// FinishSuccess transitions the job to "completed". The status guard keeps
// the processing → terminal transition one-way.
func (t *Tracker) FinishSuccess(ctx context.Context, id string) error {
	return t.finish(ctx, id, StatusCompleted, nil)
}

// FinishFailure transitions the job to "failed" and records the error detail.
func (t *Tracker) FinishFailure(ctx context.Context, id string, errorMessage string) error {
	return t.finish(ctx, id, StatusFailed, &errorMessage)
}

func (t *Tracker) finish(ctx context.Context, id string, status Status, errorMessage *string) error {
	result, err := t.db.DB.ExecContext(ctx,
		`UPDATE ingest_jobs
		 SET status = $1, error = $2, completed_at = NOW()
		 WHERE id = $3 AND status = $4`,
		status, nullableString(errorMessage), id, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("finishing ingest job %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking ingest job update: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("ingest job %s is not in processing state", id)
	}
	t.logger.Info("ingest job finished", "job_id", id, "status", status)
	return nil
}

// Get loads one job row by ID.
func (t *Tracker) Get(ctx context.Context, id string) (*Job, error) {
	var (
		job         Job
		errMsg      sql.NullString
		completedAt sql.NullTime
	)
	err := t.db.DB.QueryRowContext(ctx,
		`SELECT id, topic_slug, status, error, created_at, completed_at
		 FROM ingest_jobs WHERE id = $1`,
		id,
	).Scan(&job.ID, &job.TopicSlug, &job.Status, &errMsg, &job.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.Newf(apperrors.ErrNotFound, 404, "ingest job %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying ingest job %s: %w", id, err)
	}
	if errMsg.Valid {
		job.Error = &errMsg.String
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return &job, nil
}

// nullableString converts an optional message to a sql.NullString.
func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
