package silvanews

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/sn3fru/silvanews-sub000/pkg/degrade"
	"github.com/sn3fru/silvanews-sub000/pkg/graph"
	"github.com/sn3fru/silvanews-sub000/pkg/llm"
	"github.com/sn3fru/silvanews-sub000/pkg/prompts"
	"github.com/sn3fru/silvanews-sub000/pkg/similarity"
	"github.com/sn3fru/silvanews-sub000/pkg/types"
)

const (
	// hintFloor drops pairs whose similarity adds no signal to the prompt.
	hintFloor = 0.5
	// excerptRunes bounds the article text sent to the reasoning service.
	excerptRunes = 400
)

// assignBatch groups the enriched batch into clusters. The grouping
// decision belongs to the reasoning step; similarity hints are advisory
// input to it, never a decision by themselves. When the decision step is
// unavailable or returns garbage, the strict vector-only fallback policy
// runs instead and is flagged as the degraded path.
func (c *Client) assignBatch(ctx context.Context, articles []*types.Article) (map[string]string, int, bool) {
	assignments := make(map[string]string, len(articles))

	window := time.Now().UTC().Add(-time.Duration(c.config.Context.TemporalWindowDays) * 24 * time.Hour)
	candidates, err := c.store.ActiveClusters(ctx, window)
	if err != nil {
		c.logger.Warn("listing candidate clusters", "error", err)
		candidates = nil
	}

	decision := c.requestDecision(ctx, articles, candidates)
	if decision.Status == llm.DecisionOk {
		newClusters := c.applyDecision(ctx, decision.Decision, articles, candidates, assignments)
		return assignments, newClusters, false
	}

	c.logger.Warn("grouping decision unavailable, using vector-only fallback",
		"status", string(decision.Status))
	newClusters := c.fallbackAssign(ctx, articles, candidates, assignments)
	return assignments, newClusters, true
}

// requestDecision sends the batch with its similarity hints to the
// reasoning step and parses the typed result.
func (c *Client) requestDecision(ctx context.Context, articles []*types.Article, candidates []*types.Cluster) llm.DecisionResult {
	inputs := make([]prompts.ArticleInput, len(articles))
	for i, article := range articles {
		inputs[i] = prompts.ArticleInput{ID: article.ID, Excerpt: excerpt(article.Text())}
	}
	clusterInputs := make([]prompts.ClusterInput, len(candidates))
	for i, cluster := range candidates {
		clusterInputs[i] = prompts.ClusterInput{ID: cluster.ID, Title: cluster.Title, Summary: cluster.Summary}
	}
	hints := similarityHints(articles, candidates)

	result := llm.UnavailableDecision()
	err := c.degrader.Run(ctx, degrade.StageDecision, "", func(ctx context.Context) error {
		resp, err := c.reasoner.Chat(ctx, prompts.GroupArticles(inputs, clusterInputs, hints))
		if err != nil {
			return types.NewEnrichmentError(types.ErrProviderUnavailable, degrade.StageDecision, "", err)
		}
		parsed := llm.ParseDecision(resp.Content)
		if parsed.Status == llm.DecisionMalformed {
			result = parsed
			return types.NewEnrichmentError(types.ErrMalformedResponse, degrade.StageDecision, "",
				fmt.Errorf("unparsable grouping decision"))
		}
		result = parsed
		return nil
	})
	if err != nil && result.Status == llm.DecisionOk {
		// Breaker rejected the call before it ran.
		return llm.UnavailableDecision()
	}
	return result
}

// similarityHints renders pairwise cosine similarities as advisory lines,
// article to article within the batch and article to candidate cluster
// mean. Scores are shown as rounded percentages.
func similarityHints(articles []*types.Article, candidates []*types.Cluster) []string {
	var hints []string
	for i := 0; i < len(articles); i++ {
		for j := i + 1; j < len(articles); j++ {
			if score, ok := similarity.Cosine(articles[i].Embedding, articles[j].Embedding); ok && score >= hintFloor {
				hints = append(hints, fmt.Sprintf("items %d and %d: %d%% similar", i+1, j+1, percent(score)))
			}
		}
	}
	for i, article := range articles {
		for _, cluster := range candidates {
			if score, ok := similarity.Cosine(article.Embedding, cluster.MeanEmbedding); ok && score >= hintFloor {
				hints = append(hints, fmt.Sprintf("item %d and cluster %s: %d%% similar", i+1, cluster.ID, percent(score)))
			}
		}
	}
	return hints
}

func percent(score float64) int {
	return int(math.Round(score * 100))
}

func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptRunes {
		return text
	}
	return string(runes[:excerptRunes])
}

// applyDecision places articles per the reasoning step's groups. Unknown
// article ids inside a group are integrity errors: logged and skipped.
// Batch articles the decision left unplaced go through the fallback
// policy individually.
func (c *Client) applyDecision(ctx context.Context, decision *llm.ClusterDecision, articles []*types.Article, candidates []*types.Cluster, assignments map[string]string) int {
	byID := make(map[string]*types.Article, len(articles))
	for _, article := range articles {
		byID[article.ID] = article
	}

	newClusters := 0
	for _, group := range decision.Groups {
		var members []*types.Article
		for _, id := range group.ArticleIDs {
			article, ok := byID[id]
			if !ok || assignments[id] != "" {
				if !ok {
					c.logger.Error("grouping decision references unknown article",
						"article_id", id,
						"error_class", string(types.ErrIntegrity))
				}
				continue
			}
			members = append(members, article)
		}
		if len(members) == 0 {
			continue
		}
		clusterID, created := c.placeArticles(ctx, group.ClusterID, members)
		if created {
			newClusters++
		}
		for _, member := range members {
			assignments[member.ID] = clusterID
		}
	}

	var leftover []*types.Article
	for _, article := range articles {
		if assignments[article.ID] == "" {
			leftover = append(leftover, article)
		}
	}
	if len(leftover) > 0 {
		c.logger.Warn("grouping decision left articles unplaced, using vector-only fallback",
			"count", len(leftover))
		newClusters += c.fallbackAssign(ctx, leftover, candidates, assignments)
	}
	return newClusters
}

// fallbackAssign is the degraded path: each article joins the candidate
// cluster with the highest mean-embedding similarity at or above the
// strict threshold, otherwise it starts a singleton cluster. Freshly
// created clusters join the candidate set so identical articles later in
// the batch converge.
func (c *Client) fallbackAssign(ctx context.Context, articles []*types.Article, candidates []*types.Cluster, assignments map[string]string) int {
	threshold := c.config.Pipeline.FallbackAssignThreshold
	newClusters := 0
	for _, article := range articles {
		target := ""
		bestScore := 0.0
		for _, cluster := range candidates {
			if score, ok := similarity.Cosine(article.Embedding, cluster.MeanEmbedding); ok && score >= threshold && score > bestScore {
				target = cluster.ID
				bestScore = score
			}
		}
		clusterID, created := c.placeArticles(ctx, target, []*types.Article{article})
		if created {
			newClusters++
			if fresh, err := c.store.GetCluster(ctx, clusterID); err == nil {
				candidates = append(candidates, fresh)
			}
		}
		assignments[article.ID] = clusterID
		c.logger.Info("fallback assignment",
			"article_id", article.ID,
			"cluster_id", clusterID,
			"new_cluster", created,
			"score", bestScore)
	}
	return newClusters
}

// placeArticles adds the articles to the target cluster, creating a new
// one when targetID is empty or unknown, and recomputes the cluster mean
// embedding from its members. Cluster mutation within a batch is
// sequential; callers must not invoke this concurrently.
func (c *Client) placeArticles(ctx context.Context, targetID string, members []*types.Article) (string, bool) {
	now := time.Now().UTC()
	var cluster *types.Cluster
	created := false

	if targetID != "" {
		existing, err := c.store.GetCluster(ctx, targetID)
		switch {
		case err == nil:
			cluster = existing
		case errors.Is(err, graph.ErrNotFound):
			c.logger.Error("grouping decision references unknown cluster",
				"cluster_id", targetID,
				"error_class", string(types.ErrIntegrity))
		default:
			c.logger.Warn("loading target cluster", "cluster_id", targetID, "error", err)
		}
	}
	if cluster == nil {
		cluster = &types.Cluster{
			ID:        uuid.New().String(),
			Status:    types.ClusterActive,
			CreatedAt: now,
		}
		created = true
	}

	for _, article := range members {
		if !cluster.HasMember(article.ID) {
			cluster.MemberIDs = append(cluster.MemberIDs, article.ID)
		}
		article.ClusterID = cluster.ID
		article.Status = types.StatusGrouped
		article.UpdatedAt = now
		if err := c.store.SaveArticle(ctx, article); err != nil {
			c.logger.Error("persisting grouped article", "article_id", article.ID, "error", err)
		}
	}

	cluster.MeanEmbedding = c.meanOfMembers(ctx, cluster)
	cluster.UpdatedAt = now
	if err := c.store.SaveCluster(ctx, cluster); err != nil {
		c.logger.Error("persisting cluster", "cluster_id", cluster.ID, "error", err)
	}
	return cluster.ID, created
}

// meanOfMembers recomputes the arithmetic mean over the embeddings of
// the cluster's present-embedding members.
func (c *Client) meanOfMembers(ctx context.Context, cluster *types.Cluster) []float32 {
	vectors := make([][]float32, 0, len(cluster.MemberIDs))
	for _, id := range cluster.MemberIDs {
		article, err := c.store.GetArticle(ctx, id)
		if err != nil {
			c.logger.Warn("loading cluster member for mean", "article_id", id, "error", err)
			continue
		}
		if len(article.Embedding) > 0 {
			vectors = append(vectors, article.Embedding)
		}
	}
	if len(vectors) == 0 {
		return nil
	}
	return similarity.Mean(vectors, len(vectors[0]))
}
