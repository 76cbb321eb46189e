package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	silvanews "github.com/sn3fru/silvanews-sub000"
	"github.com/sn3fru/silvanews-sub000/pkg/config"
	"github.com/sn3fru/silvanews-sub000/pkg/graph"
	"github.com/sn3fru/silvanews-sub000/pkg/server/dto"
	"github.com/sn3fru/silvanews-sub000/pkg/types"
)

type stubCore struct {
	enrichFunc  func(ctx context.Context, articles []*types.Article) (*silvanews.BatchResult, error)
	articleFunc func(ctx context.Context, id string) (*types.Article, error)
	clusterFunc func(ctx context.Context, id string) (*types.Cluster, error)
	mergesFunc  func(ctx context.Context, since time.Time) ([]silvanews.MergeSuggestion, error)
}

func (s *stubCore) EnrichBatch(ctx context.Context, articles []*types.Article) (*silvanews.BatchResult, error) {
	return s.enrichFunc(ctx, articles)
}

func (s *stubCore) BuildContext(ctx context.Context, cluster *types.Cluster) *types.ContextBundle {
	return &types.ContextBundle{TemporalClusters: []types.ClusterRef{}, SimilarArticles: []types.ArticleRef{}}
}

func (s *stubCore) SuggestMerges(ctx context.Context, since time.Time) ([]silvanews.MergeSuggestion, error) {
	if s.mergesFunc != nil {
		return s.mergesFunc(ctx, since)
	}
	return nil, nil
}

func (s *stubCore) ApplyMerge(ctx context.Context, loserID, survivorID string) error { return nil }

func (s *stubCore) GetArticle(ctx context.Context, id string) (*types.Article, error) {
	if s.articleFunc != nil {
		return s.articleFunc(ctx, id)
	}
	return nil, graph.ErrNotFound
}

func (s *stubCore) GetCluster(ctx context.Context, id string) (*types.Cluster, error) {
	if s.clusterFunc != nil {
		return s.clusterFunc(ctx, id)
	}
	return nil, graph.ErrNotFound
}

func (s *stubCore) GetEntity(ctx context.Context, id string) (*types.GraphEntity, error) {
	return nil, graph.ErrNotFound
}

func (s *stubCore) GetEdge(ctx context.Context, id string) (*types.GraphEdge, error) {
	return nil, graph.ErrNotFound
}

func (s *stubCore) Close(ctx context.Context) error { return nil }

func newTestServer(core silvanews.Silvanews) *Server {
	cfg := &config.Config{Server: config.ServerConfig{Host: "127.0.0.1", Port: 0, Mode: gin.TestMode}}
	catalog := config.NewCatalog([]string{"economy"}, []string{"P1"})
	srv := New(cfg, core, catalog, nil)
	srv.Setup()
	return srv
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(&stubCore{})

	for _, path := range []string{"/health", "/live", "/ready"} {
		w := doRequest(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestReadinessNotReadyWhenStoreDown(t *testing.T) {
	core := &stubCore{
		articleFunc: func(ctx context.Context, id string) (*types.Article, error) {
			return nil, errors.New("bolt: connection refused")
		},
	}
	srv := newTestServer(core)

	w := doRequest(t, srv, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not ready")
	assert.Contains(t, w.Body.String(), "unhealthy")
}

func TestEnrichBatchEndpoint(t *testing.T) {
	core := &stubCore{
		enrichFunc: func(ctx context.Context, articles []*types.Article) (*silvanews.BatchResult, error) {
			return &silvanews.BatchResult{
				Total:         len(articles),
				FullyEnriched: len(articles),
				Assignments:   map[string]string{"a-1": "c-1"},
				NewClusters:   1,
			}, nil
		},
	}
	srv := newTestServer(core)

	w := doRequest(t, srv, http.MethodPost, "/api/v1/enrich",
		`{"articles": [{"id": "a-1", "raw_text": "Fire at the refinery."}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result dto.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Success)
}

func TestEnrichBatchEndpointRejectsBadInput(t *testing.T) {
	srv := newTestServer(&stubCore{})

	tests := []struct {
		name string
		body string
	}{
		{"no body", `{}`},
		{"empty batch", `{"articles": []}`},
		{"missing raw_text", `{"articles": [{"id": "a-1"}]}`},
		{"blank id", `{"articles": [{"id": "  ", "raw_text": "x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, srv, http.MethodPost, "/api/v1/enrich", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestInspectEndpoints(t *testing.T) {
	core := &stubCore{
		articleFunc: func(ctx context.Context, id string) (*types.Article, error) {
			if id == "a-1" {
				return &types.Article{ID: "a-1", RawText: "t", Status: types.StatusGrouped}, nil
			}
			return nil, graph.ErrNotFound
		},
		clusterFunc: func(ctx context.Context, id string) (*types.Cluster, error) {
			if id == "c-1" {
				return &types.Cluster{ID: "c-1", Status: types.ClusterActive}, nil
			}
			return nil, graph.ErrNotFound
		},
	}
	srv := newTestServer(core)

	assert.Equal(t, http.StatusOK, doRequest(t, srv, http.MethodGet, "/api/v1/articles/a-1", "").Code)
	assert.Equal(t, http.StatusNotFound, doRequest(t, srv, http.MethodGet, "/api/v1/articles/ghost", "").Code)
	assert.Equal(t, http.StatusOK, doRequest(t, srv, http.MethodGet, "/api/v1/clusters/c-1", "").Code)
	assert.Equal(t, http.StatusOK, doRequest(t, srv, http.MethodGet, "/api/v1/clusters/c-1/context", "").Code)
	assert.Equal(t, http.StatusNotFound, doRequest(t, srv, http.MethodGet, "/api/v1/entities/ghost", "").Code)
	assert.Equal(t, http.StatusNotFound, doRequest(t, srv, http.MethodGet, "/api/v1/edges/ghost", "").Code)
}

func TestMergesEndpoint(t *testing.T) {
	core := &stubCore{
		mergesFunc: func(ctx context.Context, since time.Time) ([]silvanews.MergeSuggestion, error) {
			return []silvanews.MergeSuggestion{{ClusterA: "c-1", ClusterB: "c-2", Score: 0.8}}, nil
		},
	}
	srv := newTestServer(core)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/merges?window_days=14", "")
	require.Equal(t, http.StatusOK, w.Code)

	var result dto.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Success)

	w = doRequest(t, srv, http.MethodGet, "/api/v1/merges?window_days=zero", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	srv := newTestServer(&stubCore{})

	w := doRequest(t, srv, http.MethodGet, "/api/v1/catalog", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "economy")
}
