// Package httptransport re-publishes aggregates over HTTP.
package httptransport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"metafed/internal/metadata/provenance"
	"metafed/internal/metadata/service"
	"metafed/internal/metadata/store"
	dErrors "metafed/pkg/domain-errors"
	"metafed/pkg/platform/httputil"
	"metafed/pkg/platform/sentinel"
	"metafed/pkg/requestcontext"
)

// ContentTypeSAMLMetadata is the media type of published aggregates.
const ContentTypeSAMLMetadata = "application/samlmetadata+xml"

// Refresher rebuilds the aggregate on demand.
type Refresher interface {
	Refresh(ctx context.Context) (service.Report, error)
}

// Finder returns published aggregates.
type Finder interface {
	Find(ctx context.Context, name string) (*store.Published, error)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Handler serves published aggregates and triggers refreshes.
type Handler struct {
	refresher Refresher
	finder    Finder
	checks    map[string]HealthCheck
	logger    *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithHealthCheck adds a named dependency check to /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(h *Handler) {
		h.checks[name] = check
	}
}

// New constructs a Handler.
func New(refresher Refresher, finder Finder, opts ...Option) *Handler {
	h := &Handler{
		refresher: refresher,
		finder:    finder,
		checks:    map[string]HealthCheck{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/healthz", h.HandleHealth)
	r.Get("/md/{name}", h.HandleMetadata)
	r.Get("/md/{name}/entities", h.HandleEntities)
	r.Post("/refresh", h.HandleRefresh)
}

// HandleHealth handles GET /healthz.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{}
	healthy := true
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, code, map[string]any{"healthy": healthy, "checks": status})
}

// HandleMetadata handles GET /md/{name}.
func (h *Handler) HandleMetadata(w http.ResponseWriter, r *http.Request) {
	p, ok := h.find(w, r)
	if !ok {
		return
	}

	etag := strconv.Quote(p.RunID)
	w.Header().Set("ETag", etag)
	w.Header().Set("Last-Modified", p.PublishedAt.UTC().Format(http.TimeFormat))
	if ttl, live := p.TTL(requestcontext.Now(r.Context())); live && ttl > 0 {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(ttl/time.Second)))
	}
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", ContentTypeSAMLMetadata)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(p.XML)
}

// HandleEntities handles GET /md/{name}/entities. The optional role query
// parameter keeps only entities declaring that role.
func (h *Handler) HandleEntities(w http.ResponseWriter, r *http.Request) {
	p, ok := h.find(w, r)
	if !ok {
		return
	}
	role := r.URL.Query().Get("role")

	ids := make([]string, 0, len(p.Entities))
	for id, attrs := range p.Entities {
		if role != "" && !contains(attrs[provenance.AttrRole], role) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entities := make([]EntityResponse, 0, len(ids))
	for _, id := range ids {
		entities = append(entities, EntityResponse{EntityID: id, Attributes: p.Entities[id]})
	}
	httputil.WriteJSON(w, http.StatusOK, EntitiesResponse{
		Name:     p.Name,
		RunID:    p.RunID,
		Entities: entities,
	})
}

// HandleRefresh handles POST /refresh.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	report, err := h.refresher.Refresh(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "refresh failed",
			"request_id", requestID,
			"run_id", report.RunID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "refresh triggered",
		"request_id", requestID,
		"run_id", report.RunID,
	)
	httputil.WriteJSON(w, http.StatusOK, FromReport(report))
}

func (h *Handler) find(w http.ResponseWriter, r *http.Request) (*store.Published, bool) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid aggregate name"))
		return nil, false
	}
	p, err := h.finder.Find(r.Context(), name)
	if errors.Is(err, sentinel.ErrNotFound) {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeNotFound, "aggregate %q is not published", name))
		return nil, false
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to load aggregate",
			"request_id", requestcontext.RequestID(r.Context()),
			"aggregate", name,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load aggregate"))
		return nil, false
	}
	return p, true
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
