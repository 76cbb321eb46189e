// Package silvanews is the enrichment and clustering core of a news
// event pipeline. It takes pending articles from ingestion, attaches
// embeddings and knowledge-graph entities, groups articles into event
// clusters, and assembles the historical context downstream
// classification reads.
//
// # Basic Usage
//
// Wire a client from a graph store, a vector index, and the two
// provider clients:
//
//	store, err := graph.NewNeo4jStore(cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password, cfg.Graph.Database)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	index, err := vectorindex.OpenBadgerIndex(cfg.Index.Path, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	embedderClient, err := embedder.NewOpenAIClient(&embedder.Config{
//		Model:      cfg.Embedding.Model,
//		APIKey:     cfg.Embedding.APIKey,
//		Dimensions: cfg.Embedding.Dimensions,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	base, err := llm.NewOpenAIClient(&llm.Config{
//		Model:  cfg.Reasoning.Model,
//		APIKey: cfg.Reasoning.APIKey,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	reasoner := llm.NewRetryClient(base, llm.DefaultRetryConfig())
//
//	client, err := silvanews.NewClient(store, index, embedderClient, reasoner, catalog, cfg, logger)
//
// # Enriching a Batch
//
// EnrichBatch drives one ingestion cycle end to end. Provider failures
// degrade individual articles instead of failing the batch; every
// article finishes in enriched or grouped status.
//
//	result, err := client.EnrichBatch(ctx, articles)
//	if err != nil {
//		log.Fatal(err)
//	}
//	log.Printf("enriched %d, degraded %d", result.FullyEnriched, result.Degraded)
//
// # Context and Merges
//
// BuildContext never fails; a retrieval path that errors contributes an
// empty list. SuggestMerges is advisory only; nothing changes until
// ApplyMerge is called.
//
//	bundle := client.BuildContext(ctx, cluster)
//	suggestions, err := client.SuggestMerges(ctx, time.Now().Add(-7*24*time.Hour))
package silvanews
