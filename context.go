package silvanews

import (
	"context"
	"sync"
	"time"

	"github.com/sn3fru/silvanews-sub000/pkg/types"
)

// BuildContext assembles the historical context for a cluster before
// classification. The temporal path walks the knowledge graph for recent
// clusters sharing entities; the vector path finds semantically similar
// articles in the index. The paths run concurrently and share no state;
// either may come back empty without affecting the other, and the bundle
// itself is always returned.
func (c *Client) BuildContext(ctx context.Context, cluster *types.Cluster) *types.ContextBundle {
	bundle := &types.ContextBundle{
		TemporalClusters: []types.ClusterRef{},
		SimilarArticles:  []types.ArticleRef{},
	}
	if cluster == nil {
		return bundle
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		bundle.TemporalClusters = c.temporalPath(ctx, cluster)
	}()
	go func() {
		defer wg.Done()
		bundle.SimilarArticles = c.vectorPath(ctx, cluster)
	}()
	wg.Wait()
	return bundle
}

// temporalPath finds recently active clusters mentioning any of this
// cluster's entities, excluding the cluster itself, ordered by recency.
func (c *Client) temporalPath(ctx context.Context, cluster *types.Cluster) []types.ClusterRef {
	limit := c.config.Context.TemporalLimit
	since := time.Now().UTC().Add(-time.Duration(c.config.Context.TemporalWindowDays) * 24 * time.Hour)

	entityIDs, err := c.store.ClusterEntityIDs(ctx, cluster.ID)
	if err != nil {
		c.logger.Warn("temporal context path failed",
			"cluster_id", cluster.ID, "error", err)
		return []types.ClusterRef{}
	}
	if len(entityIDs) == 0 {
		return []types.ClusterRef{}
	}

	// Ask for one extra so the cluster's own slot does not eat the cap.
	refs, err := c.store.ClustersMentioningSince(ctx, entityIDs, since, limit+1)
	if err != nil {
		c.logger.Warn("temporal context path failed",
			"cluster_id", cluster.ID, "error", err)
		return []types.ClusterRef{}
	}

	out := make([]types.ClusterRef, 0, limit)
	for _, ref := range refs {
		if ref.ID == cluster.ID {
			continue
		}
		out = append(out, ref)
		if len(out) == limit {
			break
		}
	}
	return out
}

// vectorPath finds recent articles similar to the cluster's mean
// embedding, or to any one member's embedding when the mean is absent,
// excluding the cluster's own members.
func (c *Client) vectorPath(ctx context.Context, cluster *types.Cluster) []types.ArticleRef {
	limit := c.config.Context.VectorLimit
	since := time.Now().UTC().Add(-time.Duration(c.config.Context.VectorWindowDays) * 24 * time.Hour)

	query := cluster.MeanEmbedding
	if len(query) == 0 {
		for _, memberID := range cluster.MemberIDs {
			member, err := c.store.GetArticle(ctx, memberID)
			if err != nil {
				continue
			}
			if len(member.Embedding) > 0 {
				query = member.Embedding
				break
			}
		}
	}
	if len(query) == 0 {
		return []types.ArticleRef{}
	}

	neighbors, err := c.index.Search(ctx, query, since, limit, cluster.MemberIDs)
	if err != nil {
		c.logger.Warn("vector context path failed",
			"cluster_id", cluster.ID, "error", err)
		return []types.ArticleRef{}
	}

	out := make([]types.ArticleRef, 0, len(neighbors))
	for _, neighbor := range neighbors {
		ref := types.ArticleRef{ID: neighbor.ID, Score: neighbor.Score}
		if article, err := c.store.GetArticle(ctx, neighbor.ID); err == nil {
			ref.Excerpt = excerpt(article.Text())
			ref.PublishedAt = article.PublishedAt
		}
		out = append(out, ref)
	}
	return out
}
