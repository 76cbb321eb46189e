package silvanews

import (
	"fmt"
	"log/slog"

	core "github.com/sn3fru/silvanews-sub000"
	"github.com/sn3fru/silvanews-sub000/pkg/config"
	"github.com/sn3fru/silvanews-sub000/pkg/embedder"
	"github.com/sn3fru/silvanews-sub000/pkg/graph"
	"github.com/sn3fru/silvanews-sub000/pkg/llm"
	"github.com/sn3fru/silvanews-sub000/pkg/vectorindex"
)

// buildClient wires a full enrichment client from configuration.
func buildClient(cfg *config.Config, logger *slog.Logger) (*core.Client, *config.Catalog, error) {
	store, err := buildStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	index, err := buildIndex(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	embedderClient, err := embedder.NewOpenAIClient(&embedder.Config{
		Model:      cfg.Embedding.Model,
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating embedding client: %w", err)
	}

	reasonerBase, err := llm.NewOpenAIClient(&llm.Config{
		Model:       cfg.Reasoning.Model,
		APIKey:      cfg.Reasoning.APIKey,
		BaseURL:     cfg.Reasoning.BaseURL,
		Temperature: cfg.Reasoning.Temperature,
		MaxTokens:   cfg.Reasoning.MaxTokens,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating reasoning client: %w", err)
	}
	retryCfg := llm.DefaultRetryConfig()
	if cfg.Reasoning.MaxRetries > 0 {
		retryCfg.MaxRetries = cfg.Reasoning.MaxRetries
	}
	reasoner := llm.NewRetryClient(reasonerBase, retryCfg)

	catalog, err := buildCatalog(cfg)
	if err != nil {
		return nil, nil, err
	}

	client, err := core.NewClient(store, index, embedderClient, reasoner, catalog, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("creating client: %w", err)
	}
	return client, catalog, nil
}

func buildStore(cfg *config.Config) (graph.Store, error) {
	switch cfg.Graph.Driver {
	case "neo4j":
		store, err := graph.NewNeo4jStore(cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password, cfg.Graph.Database)
		if err != nil {
			return nil, fmt.Errorf("connecting to neo4j: %w", err)
		}
		return store, nil
	case "memory", "":
		return graph.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown graph driver %q", cfg.Graph.Driver)
	}
}

func buildIndex(cfg *config.Config, logger *slog.Logger) (vectorindex.Index, error) {
	switch cfg.Index.Backend {
	case "badger":
		index, err := vectorindex.OpenBadgerIndex(cfg.Index.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("opening vector index: %w", err)
		}
		return index, nil
	case "memory", "":
		return vectorindex.NewMemoryIndex(), nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}
}

func buildCatalog(cfg *config.Config) (*config.Catalog, error) {
	if cfg.Catalog.Path == "" {
		return config.NewCatalog(nil, nil), nil
	}
	catalog, err := config.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return catalog, nil
}
