package silvanews

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/sn3fru/silvanews-sub000/pkg/degrade"
	"github.com/sn3fru/silvanews-sub000/pkg/embedder"
	"github.com/sn3fru/silvanews-sub000/pkg/types"
)

// stageEntityLinking covers graph writes made after extraction: resolving
// surface forms and appending mention edges.
const stageEntityLinking = "entity_linking"

// EnrichBatch enriches every article concurrently under a bounded worker
// pool, then assigns the batch to clusters sequentially. Provider
// failures degrade individual stages of individual articles; the batch
// itself only fails on setup errors, never on provider behavior.
func (c *Client) EnrichBatch(ctx context.Context, articles []*types.Article) (*BatchResult, error) {
	if len(articles) == 0 {
		return &BatchResult{Assignments: map[string]string{}}, nil
	}

	workers := c.config.Pipeline.Workers
	if workers <= 0 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("creating enrichment pool: %w", err)
	}
	defer pool.Release()

	stats := degrade.NewStats()
	var wg sync.WaitGroup
	for _, article := range articles {
		article := article
		wg.Add(1)
		task := func() {
			defer wg.Done()
			c.enrichOne(ctx, article, stats)
		}
		if err := pool.Submit(task); err != nil {
			// Pool rejected the task; run it on the caller instead of
			// losing the article.
			task()
		}
	}
	wg.Wait()
	stats.LogSummary(c.logger)

	assignments, newClusters, fallback := c.assignBatch(ctx, articles)

	return &BatchResult{
		Total:              stats.Total(),
		FullyEnriched:      stats.FullyEnriched(),
		Degraded:           stats.Degraded(),
		DegradedByStage:    stats.StageCounts(),
		Assignments:        assignments,
		NewClusters:        newClusters,
		FallbackAssignment: fallback,
	}, nil
}

// enrichOne runs the embedding and extraction attempts for one article.
// The two attempts are independent; either can degrade without blocking
// the other, and the article always leaves in enriched status.
func (c *Client) enrichOne(ctx context.Context, article *types.Article, stats *degrade.Stats) {
	var degraded []string

	// Persist the pending article first so mention edges appended during
	// linking have an existing endpoint.
	if err := c.store.SaveArticle(ctx, article); err != nil {
		c.logger.Error("persisting pending article", "article_id", article.ID, "error", err)
	}

	err := c.degrader.Run(ctx, degrade.StageEmbedding, article.ID, func(ctx context.Context) error {
		vector, err := c.embedder.EmbedSingle(ctx, article.Text())
		if err != nil {
			if errors.Is(err, embedder.ErrWrongDimensions) {
				return types.NewEnrichmentError(types.ErrMalformedResponse, degrade.StageEmbedding, article.ID, err)
			}
			return types.NewEnrichmentError(types.ErrProviderUnavailable, degrade.StageEmbedding, article.ID, err)
		}
		article.Embedding = vector
		return nil
	})
	if err != nil {
		article.Embedding = nil
		degraded = append(degraded, degrade.StageEmbedding)
	}

	var mentions []types.ExtractedEntity
	err = c.degrader.Run(ctx, degrade.StageExtraction, article.ID, func(ctx context.Context) error {
		found, err := c.extractor.Extract(ctx, article.Text())
		if err != nil {
			return err
		}
		mentions = found
		return nil
	})
	if err != nil {
		mentions = nil
		degraded = append(degraded, degrade.StageExtraction)
	}

	if len(mentions) > 0 {
		entities, err := c.resolver.ResolveAll(ctx, mentions)
		if err == nil {
			err = c.resolver.LinkArticle(ctx, article.ID, entities)
		}
		if err != nil {
			c.logger.Warn("entity linking degraded",
				"article_id", article.ID,
				"stage", stageEntityLinking,
				"error_class", string(types.ClassOf(err)),
				"error", err)
			degraded = append(degraded, stageEntityLinking)
		} else {
			ids := make([]string, len(entities))
			for i, entity := range entities {
				ids[i] = entity.ID
			}
			article.EntityIDs = ids
		}
	}

	if len(article.Embedding) > 0 {
		if err := c.index.Add(ctx, article.ID, article.Embedding, article.PublishedAt); err != nil {
			c.logger.Warn("indexing embedding failed", "article_id", article.ID, "error", err)
		}
	}

	article.Status = types.StatusEnriched
	article.DegradedStages = degraded
	article.UpdatedAt = time.Now().UTC()
	if err := c.store.SaveArticle(ctx, article); err != nil {
		c.logger.Error("persisting enriched article", "article_id", article.ID, "error", err)
	}
	stats.RecordArticle(degraded)
}
