// Package store provides the read-side queries that assemble topic views for
// downstream readers.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/contenthub/content-sync-platform/internal/content"
	apperrors "github.com/contenthub/content-sync-platform/pkg/errors"
	"github.com/contenthub/content-sync-platform/pkg/postgres"
)

// Store reads assembled topic views from PostgreSQL.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// New creates a Store backed by the given database.
func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "content-store"),
	}
}

// TopicBySlug assembles the full view for one topic: the topic row, its
// primary question, its article (if any), and its FAQ list sorted by
// position.
func (s *Store) TopicBySlug(ctx context.Context, slug string) (*content.TopicView, error) {
	var (
		view content.TopicView
		tags pq.StringArray
	)
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT id, slug, title, locale, tags, meta_title, meta_description, updated_at
		 FROM topics WHERE slug = $1`,
		slug,
	).Scan(&view.ID, &view.Slug, &view.Title, &view.Locale, &tags,
		&view.SEO.MetaTitle, &view.SEO.MetaDescription, &view.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.Newf(apperrors.ErrNotFound, 404, "topic %s not found", slug)
	}
	if err != nil {
		return nil, fmt.Errorf("querying topic %s: %w", slug, err)
	}
	view.Tags = tags

	err = s.db.DB.QueryRowContext(ctx,
		`SELECT text FROM questions WHERE topic_id = $1 AND is_primary = true`,
		view.ID,
	).Scan(&view.Question)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("querying primary question: %w", err)
	}

	var article content.ArticleView
	err = s.db.DB.QueryRowContext(ctx,
		`SELECT content, status, meta_title, meta_description
		 FROM articles WHERE topic_id = $1`,
		view.ID,
	).Scan(&article.Content, &article.Status, &article.SEO.MetaTitle, &article.SEO.MetaDescription)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("querying article: %w", err)
	}
	if err == nil {
		view.Article = &article
	}

	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, question, answer, position
		 FROM faq_items WHERE topic_id = $1 ORDER BY position ASC`,
		view.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying faq items: %w", err)
	}
	defer rows.Close()

	view.FAQItems = make([]content.FAQItemView, 0)
	for rows.Next() {
		var item content.FAQItemView
		if err := rows.Scan(&item.ID, &item.Question, &item.Answer, &item.Order); err != nil {
			return nil, fmt.Errorf("scanning faq item: %w", err)
		}
		view.FAQItems = append(view.FAQItems, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating faq items: %w", err)
	}
	return &view, nil
}

// Topics returns a page of topic summaries, most recently updated first.
func (s *Store) Topics(ctx context.Context, limit, offset int) ([]content.TopicSummary, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, slug, title, locale, updated_at
		 FROM topics ORDER BY updated_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing topics: %w", err)
	}
	defer rows.Close()

	summaries := make([]content.TopicSummary, 0)
	for rows.Next() {
		var t content.TopicSummary
		if err := rows.Scan(&t.ID, &t.Slug, &t.Title, &t.Locale, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning topic summary: %w", err)
		}
		summaries = append(summaries, t)
	}
	return summaries, rows.Err()
}
