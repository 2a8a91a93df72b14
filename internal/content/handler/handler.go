// Package handler exposes the signed content API over HTTP. The ingest and
// revalidate endpoints authenticate against the raw body bytes before any
// JSON parsing; read endpoints serve cached topic views without
// authentication.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/contenthub/content-sync-platform/internal/content"
	"github.com/contenthub/content-sync-platform/internal/content/jobs"
	"github.com/contenthub/content-sync-platform/internal/content/pipeline"
	"github.com/contenthub/content-sync-platform/internal/content/validator"
	"github.com/contenthub/content-sync-platform/internal/hmacauth"
	apperrors "github.com/contenthub/content-sync-platform/pkg/errors"
	"github.com/contenthub/content-sync-platform/pkg/logger"
	"github.com/contenthub/content-sync-platform/pkg/metrics"
)

const (
	headerAPIKey    = "x-api-key"
	headerTimestamp = "x-timestamp"
	headerSignature = "x-signature"

	maxBodyBytes = 2 << 20

	defaultListLimit = 50
	maxListLimit     = 200
)

// IngestRunner runs the ingest pipeline for an authenticated, validated
// payload.
type IngestRunner interface {
	Run(ctx context.Context, payload *content.IngestPayload, rawPayload []byte, meta pipeline.RequestMeta) (*pipeline.Result, error)
}

// TagNotifier propagates cache-invalidation tags.
type TagNotifier interface {
	Notify(ctx context.Context, tags []string)
}

// JobReader loads ingest job records.
type JobReader interface {
	Get(ctx context.Context, id string) (*jobs.Job, error)
}

// TopicReader serves assembled topic views.
type TopicReader interface {
	TopicBySlug(ctx context.Context, slug string) (*content.TopicView, error)
	Topics(ctx context.Context, limit, offset int) ([]content.TopicSummary, error)
}

// Handler holds the HTTP endpoints of the content-sync service.
type Handler struct {
	auth     *hmacauth.Authenticator
	pipeline IngestRunner
	notifier TagNotifier
	jobs     JobReader
	topics   TopicReader
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates a Handler. m may be nil.
func New(auth *hmacauth.Authenticator, p IngestRunner, notifier TagNotifier, jobReader JobReader, topics TopicReader, m *metrics.Metrics) *Handler {
	return &Handler{
		auth:     auth,
		pipeline: p,
		notifier: notifier,
		jobs:     jobReader,
		topics:   topics,
		metrics:  m,
		logger:   slog.Default().With("component", "content-handler"),
	}
}

// Ingest handles POST /api/v1/ingest.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	rawBody, ok := h.readAndAuthenticate(w, r)
	if !ok {
		h.countIngest("rejected")
		return
	}

	var payload content.IngestPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		h.countIngest("invalid")
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Invalid JSON body",
			"details": err.Error(),
		})
		return
	}
	if err := validator.ValidatePayload(&payload); err != nil {
		h.countIngest("invalid")
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "Validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	result, err := h.pipeline.Run(ctx, &payload, rawBody, pipeline.RequestMeta{
		Actor:      "ingest-client",
		RemoteAddr: r.RemoteAddr,
	})
	if err != nil {
		h.countIngest("failed")
		log.Error("ingest failed", "slug", payload.Topic.Slug, "error", err)
		// Store error detail lives in the job record and the logs only.
		h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]any{
			"error": "Internal server error",
		})
		return
	}

	h.countIngest("completed")
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"topicId": result.TopicID,
		"jobId":   result.JobID,
	})
}

// Revalidate handles POST /api/v1/revalidate. It triggers the invalidation
// directly and returns 200 even when the underlying cache signal cannot be
// confirmed.
func (h *Handler) Revalidate(w http.ResponseWriter, r *http.Request) {
	rawBody, ok := h.readAndAuthenticate(w, r)
	if !ok {
		return
	}

	var req struct {
		Tag string `json:"tag"`
	}
	if err := json.Unmarshal(rawBody, &req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid JSON body"})
		return
	}
	if req.Tag == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "Validation failed",
			"fields": map[string]string{"tag": "tag is required"},
		})
		return
	}

	h.notifier.Notify(r.Context(), []string{req.Tag})
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"tag":     req.Tag,
	})
}

// GetJob handles GET /api/v1/jobs/{id}. The signature covers the empty body.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.readAndAuthenticate(w, r); !ok {
		return
	}

	job, err := h.jobs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, job)
}

// GetTopic handles GET /api/v1/topics/{slug}.
func (h *Handler) GetTopic(w http.ResponseWriter, r *http.Request) {
	view, err := h.topics.TopicBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// ListTopics handles GET /api/v1/topics.
func (h *Handler) ListTopics(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	summaries, err := h.topics.Topics(r.Context(), limit, offset)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"topics": summaries,
		"limit":  limit,
		"offset": offset,
	})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readAndAuthenticate reads the raw body and verifies the request signature
// against those exact bytes. On rejection it writes the generic 401 response
// (with details only for replay failures) and reports ok=false. No side
// effects have happened by then, so rejected probes stay cheap.
func (h *Handler) readAndAuthenticate(w http.ResponseWriter, r *http.Request) (rawBody []byte, ok bool) {
	log := logger.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Unable to read request body"})
		return nil, false
	}

	creds := hmacauth.Credentials{
		APIKey:    r.Header.Get(headerAPIKey),
		Timestamp: r.Header.Get(headerTimestamp),
		Signature: r.Header.Get(headerSignature),
	}
	if rej := h.auth.Authenticate(creds, rawBody); rej != nil {
		log.Warn("unauthorized request",
			"reason", rej.Reason,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
		if h.metrics != nil {
			h.metrics.AuthFailuresTotal.WithLabelValues(rej.Reason).Inc()
		}
		body := map[string]any{"error": "Unauthorized"}
		if rej.Detail != "" {
			body["details"] = rej.Detail
		}
		h.writeJSON(w, http.StatusUnauthorized, body)
		return nil, false
	}
	return rawBody, true
}

// writeStoreError maps read-path errors to responses, exposing AppError
// messages for client-facing statuses only.
func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		h.writeJSON(w, status, map[string]any{"error": "Internal server error"})
		return
	}
	var appErr *apperrors.AppError
	message := http.StatusText(status)
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	h.writeJSON(w, status, map[string]any{"error": message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) countIngest(outcome string) {
	if h.metrics != nil {
		h.metrics.IngestRequestsTotal.WithLabelValues(outcome).Inc()
	}
}

// queryInt parses an integer query parameter with a default.
func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
