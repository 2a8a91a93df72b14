package jobs

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/contenthub/content-sync-platform/pkg/config"
	apperrors "github.com/contenthub/content-sync-platform/pkg/errors"
	"github.com/contenthub/content-sync-platform/pkg/postgres"
)

// These tests need a PostgreSQL instance with scripts/schema.sql applied.
// They skip when none is reachable.

func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	db, err := postgres.New(testPostgresConfig())
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testPostgresConfig() config.PostgresConfig {
	return config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "contentsync_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "contentsync"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func startJob(t *testing.T, tr *Tracker, db *postgres.Client) string {
	t.Helper()
	id, err := tr.Start(context.Background(), "tracker-test-topic", []byte(`{"topic":{"slug":"tracker-test-topic"}}`))
	if err != nil {
		t.Fatalf("starting job: %v", err)
	}
	t.Cleanup(func() {
		db.DB.Exec(`DELETE FROM ingest_jobs WHERE id = $1`, id)
	})
	return id
}

func TestTrackerLifecycleSuccess(t *testing.T) {
	db := skipIfNoPostgres(t)
	tr := NewTracker(db)
	ctx := context.Background()

	id := startJob(t, tr, db)

	job, err := tr.Get(ctx, id)
	if err != nil {
		t.Fatalf("getting job: %v", err)
	}
	if job.Status != StatusProcessing {
		t.Errorf("expected processing, got %q", job.Status)
	}
	if job.CompletedAt != nil {
		t.Error("processing job must not carry a completion time")
	}

	if err := tr.FinishSuccess(ctx, id); err != nil {
		t.Fatalf("finishing job: %v", err)
	}
	job, err = tr.Get(ctx, id)
	if err != nil {
		t.Fatalf("getting finished job: %v", err)
	}
	if job.Status != StatusCompleted {
		t.Errorf("expected completed, got %q", job.Status)
	}
	if job.Error != nil {
		t.Errorf("completed job must not carry an error, got %q", *job.Error)
	}
	if job.CompletedAt == nil {
		t.Error("completed job must carry a completion time")
	}
}

func TestTrackerLifecycleFailure(t *testing.T) {
	db := skipIfNoPostgres(t)
	tr := NewTracker(db)
	ctx := context.Background()

	id := startJob(t, tr, db)
	msg := `pq: duplicate key value violates unique constraint "faq_items_topic_id_position_key"`
	if err := tr.FinishFailure(ctx, id, msg); err != nil {
		t.Fatalf("failing job: %v", err)
	}

	job, err := tr.Get(ctx, id)
	if err != nil {
		t.Fatalf("getting failed job: %v", err)
	}
	if job.Status != StatusFailed {
		t.Errorf("expected failed, got %q", job.Status)
	}
	if job.Error == nil || *job.Error != msg {
		t.Errorf("failure detail should be stored verbatim, got %v", job.Error)
	}
}

func TestTrackerTerminalStatesAreFinal(t *testing.T) {
	db := skipIfNoPostgres(t)
	tr := NewTracker(db)
	ctx := context.Background()

	id := startJob(t, tr, db)
	if err := tr.FinishSuccess(ctx, id); err != nil {
		t.Fatalf("finishing job: %v", err)
	}

	// Every further transition must be refused.
	if err := tr.FinishFailure(ctx, id, "late failure"); err == nil {
		t.Error("completed job accepted a failure transition")
	}
	if err := tr.FinishSuccess(ctx, id); err == nil {
		t.Error("completed job accepted a second success transition")
	}

	job, err := tr.Get(ctx, id)
	if err != nil {
		t.Fatalf("getting job: %v", err)
	}
	if job.Status != StatusCompleted || job.Error != nil {
		t.Errorf("terminal state mutated: status=%q error=%v", job.Status, job.Error)
	}
}

func TestTrackerGetUnknownJob(t *testing.T) {
	db := skipIfNoPostgres(t)
	tr := NewTracker(db)

	_, err := tr.Get(context.Background(), "00000000-0000-0000-0000-000000000000")
	if err == nil {
		t.Fatal("expected an error for an unknown job")
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
