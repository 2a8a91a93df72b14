// Package validator provides input validation for ingest payloads. It checks
// the slug format, required text fields, and the article status enum, and
// returns per-field error details safe to expose to the caller.
package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/contenthub/content-sync-platform/internal/content"
)

const (
	maxSlugLength     = 255
	maxTitleLength    = 1024
	maxLocaleLength   = 16
	maxContentLength  = 1048576
	maxFAQItems       = 200
	maxQuestionLength = 2048
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// ValidatePayload checks an ingest payload and returns a ValidationError
// describing every failing field, or nil if the payload is acceptable.
func ValidatePayload(p *content.IngestPayload) error {
	errs := make(map[string]string)

	slug := strings.TrimSpace(p.Topic.Slug)
	if slug == "" {
		errs["topic.slug"] = "slug is required"
	} else if len(slug) > maxSlugLength {
		errs["topic.slug"] = fmt.Sprintf("slug must be at most %d characters", maxSlugLength)
	} else if !slugPattern.MatchString(slug) {
		errs["topic.slug"] = "slug must contain only lowercase letters, digits, and hyphens"
	}

	title := strings.TrimSpace(p.Topic.Title)
	if title == "" {
		errs["topic.title"] = "title is required"
	} else if len(title) > maxTitleLength {
		errs["topic.title"] = fmt.Sprintf("title must be at most %d characters", maxTitleLength)
	}

	if len(p.Topic.Locale) > maxLocaleLength {
		errs["topic.locale"] = fmt.Sprintf("locale must be at most %d characters", maxLocaleLength)
	}

	if strings.TrimSpace(p.MainQuestion.Text) == "" {
		errs["mainQuestion.text"] = "primary question text is required"
	} else if len(p.MainQuestion.Text) > maxQuestionLength {
		errs["mainQuestion.text"] = fmt.Sprintf("question must be at most %d characters", maxQuestionLength)
	}

	if len(p.Article.Content) > maxContentLength {
		errs["article.content"] = fmt.Sprintf("content must be at most %d characters", maxContentLength)
	}
	switch p.Article.Status {
	case "", content.StatusDraft, content.StatusPublished:
	default:
		errs["article.status"] = fmt.Sprintf("status must be %s or %s", content.StatusDraft, content.StatusPublished)
	}

	if len(p.FAQItems) > maxFAQItems {
		errs["faqItems"] = fmt.Sprintf("at most %d FAQ items are allowed", maxFAQItems)
	}
	for i, item := range p.FAQItems {
		if strings.TrimSpace(item.Question) == "" {
			errs[fmt.Sprintf("faqItems[%d].question", i)] = "question is required"
		}
		if strings.TrimSpace(item.Answer) == "" {
			errs[fmt.Sprintf("faqItems[%d].answer", i)] = "answer is required"
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
