package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"metafed/internal/platform/metrics"
	"metafed/pkg/platform/middleware/request"
)

// NewRouter wires every endpoint behind the shared middleware chain.
// metricsHandler is served on /metrics; m may be nil.
func NewRouter(h *Handler, m *metrics.Metrics, metricsHandler http.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Context)
	r.Use(request.Logger(logger))
	r.Use(middleware.Recoverer)
	if m != nil {
		r.Use(m.Middleware)
	}

	h.Register(r)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}
	return r
}
