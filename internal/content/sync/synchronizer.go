// Package sync performs the idempotent multi-entity upsert for one unit of
// content. A single transaction upserts the topic by slug, its primary
// question, its article, and replaces the FAQ list wholesale. Repeating the
// same payload leaves the store unchanged and preserves the topic, question,
// and article row identities; FAQ rows are recreated on every call.
package sync

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/contenthub/content-sync-platform/internal/content"
	"github.com/contenthub/content-sync-platform/pkg/postgres"
)

// Synchronizer applies ingest payloads to PostgreSQL.
//
// It requires the topics, questions, articles, and faq_items tables from
// scripts/schema.sql, in particular the unique constraints on topics.slug,
// articles.topic_id, and faq_items (topic_id, position) that the upserts and
// the full-replace policy rely on.
type Synchronizer struct {
	db     *postgres.Client
	logger *slog.Logger
}

// New creates a Synchronizer backed by the given database.
func New(db *postgres.Client) *Synchronizer {
	return &Synchronizer{
		db:     db,
		logger: slog.Default().With("component", "content-sync"),
	}
}

// Apply synchronizes the payload inside one transaction and returns the topic
// ID. Any failure aborts the whole transaction; no partial writes are
// visible afterwards.
func (s *Synchronizer) Apply(ctx context.Context, p *content.IngestPayload) (string, error) {
	var topicID string
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		// Lock the topic row first so concurrent ingests of the same slug
		// serialize instead of interleaving their child-table writes.
		var existing string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM topics WHERE slug = $1 FOR UPDATE`,
			p.Topic.Slug,
		).Scan(&existing)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("locking topic row: %w", err)
		}

		topicID, err = s.upsertTopic(ctx, tx, p.Topic)
		if err != nil {
			return err
		}
		if err := s.upsertPrimaryQuestion(ctx, tx, topicID, p.MainQuestion); err != nil {
			return err
		}
		if err := s.upsertArticle(ctx, tx, topicID, p.Article); err != nil {
			return err
		}
		return s.replaceFAQItems(ctx, tx, topicID, p.FAQItems)
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("content synchronized",
		"slug", p.Topic.Slug,
		"topic_id", topicID,
		"faq_items", len(p.FAQItems),
	)
	return topicID, nil
}

// upsertTopic creates or updates the topic identified by slug and returns its
// stable ID.
func (s *Synchronizer) upsertTopic(ctx context.Context, tx *sql.Tx, t content.TopicInput) (string, error) {
	locale := t.Locale
	if locale == "" {
		locale = "en"
	}
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	var id string
	err := tx.QueryRowContext(ctx,
		`INSERT INTO topics (slug, title, locale, tags, meta_title, meta_description)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (slug) DO UPDATE SET
		     title            = EXCLUDED.title,
		     locale           = EXCLUDED.locale,
		     tags             = EXCLUDED.tags,
		     meta_title       = EXCLUDED.meta_title,
		     meta_description = EXCLUDED.meta_description,
		     updated_at       = NOW()
		 RETURNING id`,
		t.Slug, t.Title, locale, pq.Array(tags), t.SEO.MetaTitle, t.SEO.MetaDescription,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upserting topic %s: %w", t.Slug, err)
	}
	return id, nil
}

// upsertPrimaryQuestion updates the topic's primary question in place, or
// creates it on first ingest.
func (s *Synchronizer) upsertPrimaryQuestion(ctx context.Context, tx *sql.Tx, topicID string, q content.QuestionInput) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE questions SET text = $1, updated_at = NOW()
		 WHERE topic_id = $2 AND is_primary = true`,
		q.Text, topicID,
	)
	if err != nil {
		return fmt.Errorf("updating primary question: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking primary question update: %w", err)
	}
	if rows > 0 {
		return nil
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO questions (topic_id, text, is_primary) VALUES ($1, $2, true)`,
		topicID, q.Text,
	)
	if err != nil {
		return fmt.Errorf("inserting primary question: %w", err)
	}
	return nil
}

// upsertArticle upserts the topic's singleton article.
func (s *Synchronizer) upsertArticle(ctx context.Context, tx *sql.Tx, topicID string, a content.ArticleInput) error {
	status := a.Status
	if status == "" {
		status = content.StatusDraft
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO articles (topic_id, content, status, meta_title, meta_description)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (topic_id) DO UPDATE SET
		     content          = EXCLUDED.content,
		     status           = EXCLUDED.status,
		     meta_title       = EXCLUDED.meta_title,
		     meta_description = EXCLUDED.meta_description,
		     updated_at       = NOW()`,
		topicID, a.Content, status, a.SEO.MetaTitle, a.SEO.MetaDescription,
	)
	if err != nil {
		return fmt.Errorf("upserting article: %w", err)
	}
	return nil
}

// replaceFAQItems deletes the topic's FAQ set and inserts the supplied list.
// Order values come from the caller unchanged; the (topic_id, position)
// unique constraint rejects internally inconsistent sets.
func (s *Synchronizer) replaceFAQItems(ctx context.Context, tx *sql.Tx, topicID string, items []content.FAQItemInput) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM faq_items WHERE topic_id = $1`, topicID,
	); err != nil {
		return fmt.Errorf("deleting faq items: %w", err)
	}
	for i, item := range items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO faq_items (topic_id, question, answer, position)
			 VALUES ($1, $2, $3, $4)`,
			topicID, item.Question, item.Answer, item.Order,
		); err != nil {
			return fmt.Errorf("inserting faq item %d: %w", i, err)
		}
	}
	return nil
}
