package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/contenthub/content-sync-platform/internal/content"
)

func validPayload() *content.IngestPayload {
	return &content.IngestPayload{
		Topic: content.TopicInput{
			Slug:   "intro-to-x",
			Title:  "Intro to X",
			Locale: "en",
			Tags:   []string{"basics"},
		},
		MainQuestion: content.QuestionInput{Text: "What is X?"},
		Article: content.ArticleInput{
			Content: "<p>X is...</p>",
			Status:  content.StatusPublished,
		},
		FAQItems: []content.FAQItemInput{
			{Question: "Why X?", Answer: "Because.", Order: 1},
		},
	}
}

func TestValidatePayloadAccepts(t *testing.T) {
	if err := ValidatePayload(validPayload()); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}

	// Status and locale may be omitted; defaults apply downstream.
	p := validPayload()
	p.Article.Status = ""
	p.Topic.Locale = ""
	if err := ValidatePayload(p); err != nil {
		t.Fatalf("expected valid payload with defaults, got %v", err)
	}
}

func TestValidatePayloadRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *content.IngestPayload)
		field  string
	}{
		{"missing slug", func(p *content.IngestPayload) { p.Topic.Slug = "" }, "topic.slug"},
		{"uppercase slug", func(p *content.IngestPayload) { p.Topic.Slug = "Intro-To-X" }, "topic.slug"},
		{"slug with spaces", func(p *content.IngestPayload) { p.Topic.Slug = "intro to x" }, "topic.slug"},
		{"overlong slug", func(p *content.IngestPayload) { p.Topic.Slug = strings.Repeat("a", 300) }, "topic.slug"},
		{"missing title", func(p *content.IngestPayload) { p.Topic.Title = "  " }, "topic.title"},
		{"missing question", func(p *content.IngestPayload) { p.MainQuestion.Text = "" }, "mainQuestion.text"},
		{"bad status", func(p *content.IngestPayload) { p.Article.Status = "published" }, "article.status"},
		{"faq missing answer", func(p *content.IngestPayload) { p.FAQItems[0].Answer = "" }, "faqItems[0].answer"},
		{"faq missing question", func(p *content.IngestPayload) { p.FAQItems[0].Question = "" }, "faqItems[0].question"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayload()
			tt.mutate(p)
			err := ValidatePayload(p)
			if err == nil {
				t.Fatal("expected validation error")
			}
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if _, ok := validationErr.Fields[tt.field]; !ok {
				t.Errorf("expected error on field %q, got %v", tt.field, validationErr.Fields)
			}
		})
	}
}
