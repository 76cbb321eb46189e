package silvanews

import (
	"context"
	"log/slog"
	"time"

	"github.com/sn3fru/silvanews-sub000/pkg/alert"
	"github.com/sn3fru/silvanews-sub000/pkg/config"
	"github.com/sn3fru/silvanews-sub000/pkg/degrade"
	"github.com/sn3fru/silvanews-sub000/pkg/embedder"
	"github.com/sn3fru/silvanews-sub000/pkg/extractor"
	"github.com/sn3fru/silvanews-sub000/pkg/graph"
	"github.com/sn3fru/silvanews-sub000/pkg/llm"
	"github.com/sn3fru/silvanews-sub000/pkg/resolver"
	"github.com/sn3fru/silvanews-sub000/pkg/types"
	"github.com/sn3fru/silvanews-sub000/pkg/vectorindex"
)

// Silvanews is the main interface of the enrichment and clustering core.
// It takes pending articles from ingestion, enriches them against the
// knowledge graph and the vector index, groups them into event clusters,
// and surfaces historical context and merge advisories for downstream
// classification.
type Silvanews interface {
	// EnrichBatch runs one batch through the full pipeline:
	// pending -> enriched (embedding and entities, each independently
	// degradable) -> grouped. It never fails a batch over a single
	// article; per-article degradation is recorded on the article.
	EnrichBatch(ctx context.Context, articles []*types.Article) (*BatchResult, error)

	// BuildContext assembles the historical context bundle for a cluster.
	// It always returns a bundle; a failed retrieval path contributes an
	// empty list.
	BuildContext(ctx context.Context, cluster *types.Cluster) *types.ContextBundle

	// SuggestMerges returns advisory merge candidates among active
	// clusters touched since the given time, highest similarity first.
	SuggestMerges(ctx context.Context, since time.Time) ([]MergeSuggestion, error)

	// ApplyMerge folds the losing cluster into the survivor. The loser is
	// marked merged, never deleted.
	ApplyMerge(ctx context.Context, loserID, survivorID string) error

	// GetArticle retrieves an article by id.
	GetArticle(ctx context.Context, id string) (*types.Article, error)

	// GetCluster retrieves a cluster by id.
	GetCluster(ctx context.Context, id string) (*types.Cluster, error)

	// GetEntity retrieves a graph entity by id.
	GetEntity(ctx context.Context, id string) (*types.GraphEntity, error)

	// GetEdge retrieves a graph edge by id.
	GetEdge(ctx context.Context, id string) (*types.GraphEdge, error)

	// Close releases all held resources.
	Close(ctx context.Context) error
}

// BatchResult summarizes one EnrichBatch run.
type BatchResult struct {
	Total           int            `json:"total"`
	FullyEnriched   int            `json:"fully_enriched"`
	Degraded        int            `json:"degraded"`
	DegradedByStage map[string]int `json:"degraded_by_stage,omitempty"`
	// Assignments maps article id to the cluster it joined.
	Assignments map[string]string `json:"assignments"`
	NewClusters int               `json:"new_clusters"`
	// FallbackAssignment is true when the grouping decision step was
	// unavailable and the strict vector-only policy was used instead.
	FallbackAssignment bool `json:"fallback_assignment"`
}

// MergeSuggestion is an advisory pairing of two clusters whose mean
// embeddings are similar enough to review for merging. ClusterA sorts
// before ClusterB so a pair is listed exactly once.
type MergeSuggestion struct {
	ClusterA string  `json:"cluster_a"`
	ClusterB string  `json:"cluster_b"`
	Score    float64 `json:"score"`
}

// Client is the main implementation of the Silvanews interface.
type Client struct {
	store     graph.Store
	index     vectorindex.Index
	embedder  embedder.Client
	reasoner  llm.Client
	extractor extractor.Extractor
	resolver  *resolver.Resolver
	degrader  *degrade.Controller
	catalog   *config.Catalog
	config    *config.Config
	logger    *slog.Logger
}

var _ Silvanews = (*Client)(nil)

// NewClient wires the enrichment core together. The reasoning client
// should already carry its retry policy; the degradation controller adds
// circuit breaking and per-call timeouts on top.
func NewClient(store graph.Store, index vectorindex.Index, embedderClient embedder.Client, reasoner llm.Client, catalog *config.Catalog, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var alerter alert.Alerter = &alert.NoOpAlerter{}
	if cfg.Alert.Enabled {
		alerter = alert.NewEmailAlerter(cfg.Alert)
	}

	matcher := resolver.NewTrigramMatcher(cfg.Resolver.FuzzyThreshold)

	return &Client{
		store:     store,
		index:     index,
		embedder:  embedderClient,
		reasoner:  reasoner,
		extractor: extractor.NewLLMExtractor(reasoner),
		resolver:  resolver.New(store, matcher, logger),
		degrader:  degrade.NewController(cfg.Breaker, cfg.Pipeline.CallTimeout(), alerter, logger),
		catalog:   catalog,
		config:    cfg,
		logger:    logger,
	}, nil
}

// Catalog returns the tag/priority vocabulary this client was built with.
func (c *Client) Catalog() *config.Catalog {
	return c.catalog
}

func (c *Client) GetArticle(ctx context.Context, id string) (*types.Article, error) {
	return c.store.GetArticle(ctx, id)
}

func (c *Client) GetCluster(ctx context.Context, id string) (*types.Cluster, error) {
	return c.store.GetCluster(ctx, id)
}

func (c *Client) GetEntity(ctx context.Context, id string) (*types.GraphEntity, error) {
	return c.store.GetEntity(ctx, id)
}

func (c *Client) GetEdge(ctx context.Context, id string) (*types.GraphEdge, error) {
	return c.store.GetEdge(ctx, id)
}

// Close shuts down the store, the index and both provider clients.
func (c *Client) Close(ctx context.Context) error {
	var firstErr error
	if err := c.index.Close(); err != nil {
		firstErr = err
	}
	if err := c.embedder.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.reasoner.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.store.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
