package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metafed/internal/metadata/provenance"
	"metafed/internal/metadata/service"
	"metafed/internal/metadata/store"
	dErrors "metafed/pkg/domain-errors"
	"metafed/pkg/testutil"
)

type refreshFunc func(ctx context.Context) (service.Report, error)

func (f refreshFunc) Refresh(ctx context.Context) (service.Report, error) {
	return f(ctx)
}

type failingFinder struct{}

func (failingFinder) Find(context.Context, string) (*store.Published, error) {
	return nil, errors.New("connection refused")
}

func published() *store.Published {
	return &store.Published{
		Name:        "urn:fed",
		XML:         []byte(`<md:EntitiesDescriptor xmlns:md="urn:oasis:names:tc:SAML:2.0:metadata" Name="urn:fed"/>`),
		RunID:       "run-7",
		PublishedAt: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		Expires:     time.Now().Add(time.Hour),
		Entities: map[string]map[string][]string{
			"https://sp.example.org":  {provenance.AttrRole: {"sp"}},
			"https://idp.example.org": {provenance.AttrRole: {"idp"}},
		},
	}
}

func newRouter(t *testing.T, refresher Refresher, finder Finder, opts ...Option) http.Handler {
	t.Helper()
	opts = append(opts, WithLogger(slog.New(slog.DiscardHandler)))
	return NewRouter(New(refresher, finder, opts...), nil,
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("metrics")) }),
		slog.New(slog.DiscardHandler))
}

func seededStore(t *testing.T) *store.InMemoryStore {
	t.Helper()
	st := store.NewInMemoryStore()
	require.NoError(t, st.Save(context.Background(), published()))
	return st
}

func TestHandleMetadata(t *testing.T) {
	router := newRouter(t, nil, seededStore(t))

	t.Run("serves the aggregate", func(t *testing.T) {
		rec := testutil.DoRequest(router, http.MethodGet, "/md/urn:fed", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, ContentTypeSAMLMetadata, rec.Header().Get("Content-Type"))
		assert.Equal(t, `"run-7"`, rec.Header().Get("ETag"))
		assert.Equal(t, "Wed, 01 Jan 2025 12:00:00 GMT", rec.Header().Get("Last-Modified"))
		assert.Regexp(t, `^public, max-age=3[56]\d\d$`, rec.Header().Get("Cache-Control"))
		assert.Contains(t, rec.Body.String(), `Name="urn:fed"`)
	})

	t.Run("not modified", func(t *testing.T) {
		rec := testutil.DoRequest(router, http.MethodGet, "/md/urn:fed", http.Header{"If-None-Match": {`"run-7"`}})
		assert.Equal(t, http.StatusNotModified, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("escaped names", func(t *testing.T) {
		rec := testutil.DoRequest(router, http.MethodGet, "/md/urn%3Afed", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown aggregate", func(t *testing.T) {
		rec := testutil.DoRequest(router, http.MethodGet, "/md/urn:other", nil)
		testutil.AssertStatusAndError(t, rec, http.StatusNotFound, "not_found")
	})

	t.Run("store failure", func(t *testing.T) {
		rec := testutil.DoRequest(newRouter(t, nil, failingFinder{}), http.MethodGet, "/md/urn:fed", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandleEntities(t *testing.T) {
	router := newRouter(t, nil, seededStore(t))

	rec := testutil.DoRequest(router, http.MethodGet, "/md/urn:fed/entities", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := testutil.UnmarshalResponse[EntitiesResponse](t, rec)
	assert.Equal(t, "run-7", all.RunID)
	require.Len(t, all.Entities, 2)
	assert.Equal(t, "https://idp.example.org", all.Entities[0].EntityID, "sorted by entityID")

	rec = testutil.DoRequest(router, http.MethodGet, "/md/urn:fed/entities?role=sp", nil)
	sps := testutil.UnmarshalResponse[EntitiesResponse](t, rec)
	require.Len(t, sps.Entities, 1)
	assert.Equal(t, "https://sp.example.org", sps.Entities[0].EntityID)
}

func TestHandleRefresh(t *testing.T) {
	t.Run("reports the run", func(t *testing.T) {
		refresher := refreshFunc(func(context.Context) (service.Report, error) {
			return service.Report{
				RunID:       "run-8",
				Published:   published(),
				NextRefresh: 30 * time.Minute,
				Sources:     []service.SourceReport{{Name: "a", Entities: 2, Invalid: 1}},
			}, nil
		})
		rec := testutil.DoRequest(newRouter(t, refresher, store.NewInMemoryStore()), http.MethodPost, "/refresh", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		body := testutil.UnmarshalResponse[RefreshResponse](t, rec)
		assert.Equal(t, &RefreshResponse{
			RunID:              "run-8",
			Published:          true,
			Entities:           2,
			NextRefreshSeconds: 1800,
			Sources:            []SourceResponse{{Name: "a", Entities: 2, Invalid: 1}},
		}, body)
	})

	t.Run("maps pipeline errors", func(t *testing.T) {
		refresher := refreshFunc(func(context.Context) (service.Report, error) {
			return service.Report{RunID: "run-9"}, dErrors.New(dErrors.CodeSignature, "signature verification failed")
		})
		rec := testutil.DoRequest(newRouter(t, refresher, store.NewInMemoryStore()), http.MethodPost, "/refresh", nil)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("rejects GET", func(t *testing.T) {
		rec := testutil.DoRequest(newRouter(t, nil, store.NewInMemoryStore()), http.MethodGet, "/refresh", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestHandleHealth(t *testing.T) {
	testutil.Given(t, "no dependency checks", func(t *testing.T) {
		router := newRouter(t, nil, store.NewInMemoryStore())

		testutil.Then(t, "the service is healthy", func(t *testing.T) {
			rec := testutil.DoRequest(router, http.MethodGet, "/healthz", nil)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	})

	testutil.Given(t, "a failing redis check", func(t *testing.T) {
		router := newRouter(t, nil, store.NewInMemoryStore(),
			WithHealthCheck("redis", func(context.Context) error { return errors.New("down") }))

		testutil.When(t, "probing /healthz", func(t *testing.T) {
			rec := testutil.DoRequest(router, http.MethodGet, "/healthz", nil)

			testutil.Then(t, "it reports the failing check", func(t *testing.T) {
				assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
				assert.JSONEq(t, `{"healthy":false,"checks":{"redis":"down"}}`, rec.Body.String())
			})
		})
	})
}

func TestMetricsEndpoint(t *testing.T) {
	rec := testutil.DoRequest(newRouter(t, nil, store.NewInMemoryStore()), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "metrics", rec.Body.String())
}
