// Package content defines the ingest payload accepted by the signed content
// API and the read-side view types served to downstream readers.
//
// The payload's slug is the natural key for the whole unit of content: the
// topic, its primary question, its article, and its FAQ list are all
// addressed through it. JSON field names follow the external publishing
// contract (camelCase), which is fixed by the signing clients.
package content

import "time"

// Article statuses.
const (
	StatusDraft     = "DRAFT"
	StatusPublished = "PUBLISHED"
)

// SEO holds the per-entity SEO metadata supplied by the publisher.
type SEO struct {
	MetaTitle       string `json:"metaTitle"`
	MetaDescription string `json:"metaDescription"`
}

// TopicInput identifies and describes the topic being ingested.
type TopicInput struct {
	Slug   string   `json:"slug"`
	Title  string   `json:"title"`
	Locale string   `json:"locale"`
	Tags   []string `json:"tags"`
	SEO    SEO      `json:"seo"`
}

// QuestionInput is the topic's primary question.
type QuestionInput struct {
	Text string `json:"text"`
}

// ArticleInput is the topic's single article.
type ArticleInput struct {
	Content string `json:"content"`
	Status  string `json:"status"`
	SEO     SEO    `json:"seo"`
}

// FAQItemInput is one entry of the topic's FAQ list. Order is caller-assigned
// and used only for display sorting; values need not be contiguous.
type FAQItemInput struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Order    int    `json:"order"`
}

// IngestPayload is the JSON body of a signed ingest request. The FAQ list is
// a full replacement: every ingest must carry the complete desired set.
type IngestPayload struct {
	Topic        TopicInput     `json:"topic"`
	MainQuestion QuestionInput  `json:"mainQuestion"`
	Article      ArticleInput   `json:"article"`
	FAQItems     []FAQItemInput `json:"faqItems"`
}

// TopicView is the assembled read model for one topic.
type TopicView struct {
	ID        string        `json:"id"`
	Slug      string        `json:"slug"`
	Title     string        `json:"title"`
	Locale    string        `json:"locale"`
	Tags      []string      `json:"tags"`
	SEO       SEO           `json:"seo"`
	Question  string        `json:"question"`
	Article   *ArticleView  `json:"article,omitempty"`
	FAQItems  []FAQItemView `json:"faqItems"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// ArticleView is the article portion of a TopicView.
type ArticleView struct {
	Content string `json:"content"`
	Status  string `json:"status"`
	SEO     SEO    `json:"seo"`
}

// FAQItemView is one FAQ entry of a TopicView, sorted by Order.
type FAQItemView struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Order    int    `json:"order"`
}

// TopicSummary is one row of the topic listing.
type TopicSummary struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Locale    string    `json:"locale"`
	UpdatedAt time.Time `json:"updatedAt"`
}
