package handler

import (
	"net/http"
	"time"

	"github.com/contenthub/content-sync-platform/pkg/health"
	"github.com/contenthub/content-sync-platform/pkg/metrics"
	"github.com/contenthub/content-sync-platform/pkg/middleware"
)

// readTimeout bounds the public read endpoints. Ingest is not wrapped: its
// transaction carries its own timeout and must outlive client disconnects.
const readTimeout = 10 * time.Second

// NewRouter builds the full HTTP handler with all routes and middleware.
//
// Route table:
//
//	POST /api/v1/ingest        → signed content ingest
//	POST /api/v1/revalidate    → signed cache-tag invalidation
//	GET  /api/v1/jobs/{id}     → signed ingest-job lookup
//	GET  /api/v1/topics        → public cached topic listing
//	GET  /api/v1/topics/{slug} → public cached topic view
//	GET  /health               → basic health
//	GET  /health/live          → liveness probe
//	GET  /health/ready         → readiness probe
//
// Middleware chain (outermost first): RequestID → Metrics → mux.
func NewRouter(h *Handler, checker *health.Checker, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/ingest", h.Ingest)
	mux.HandleFunc("POST /api/v1/revalidate", h.Revalidate)
	mux.HandleFunc("GET /api/v1/jobs/{id}", h.GetJob)

	timeout := middleware.Timeout(readTimeout)
	mux.Handle("GET /api/v1/topics", timeout(http.HandlerFunc(h.ListTopics)))
	mux.Handle("GET /api/v1/topics/{slug}", timeout(http.HandlerFunc(h.GetTopic)))

	mux.HandleFunc("GET /health", h.Health)
	if checker != nil {
		mux.HandleFunc("GET /health/live", checker.LiveHandler())
		mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	}

	var chain http.Handler = mux
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.RequestID(chain)
	return chain
}
