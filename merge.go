package silvanews

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sn3fru/silvanews-sub000/pkg/similarity"
	"github.com/sn3fru/silvanews-sub000/pkg/types"
)

// SuggestMerges compares the mean embeddings of every pair of active
// clusters touched since the given time and returns the pairs at or
// above the configured threshold, highest first. The output is advisory:
// no cluster changes state until ApplyMerge is called explicitly.
func (c *Client) SuggestMerges(ctx context.Context, since time.Time) ([]MergeSuggestion, error) {
	clusters, err := c.store.ActiveClusters(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("listing active clusters: %w", err)
	}

	threshold := c.config.Merge.SuggestThreshold
	var suggestions []MergeSuggestion
	for i := 0; i < len(clusters); i++ {
		for j := i + 1; j < len(clusters); j++ {
			score, ok := similarity.Cosine(clusters[i].MeanEmbedding, clusters[j].MeanEmbedding)
			if !ok || score < threshold {
				continue
			}
			a, b := clusters[i].ID, clusters[j].ID
			if b < a {
				a, b = b, a
			}
			suggestions = append(suggestions, MergeSuggestion{ClusterA: a, ClusterB: b, Score: score})
		}
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		if suggestions[i].ClusterA != suggestions[j].ClusterA {
			return suggestions[i].ClusterA < suggestions[j].ClusterA
		}
		return suggestions[i].ClusterB < suggestions[j].ClusterB
	})
	return suggestions, nil
}

// ApplyMerge reassigns every member of the losing cluster to the
// survivor, recomputes the survivor's mean embedding, and marks the
// loser merged. The loser's record stays in the store for audit.
func (c *Client) ApplyMerge(ctx context.Context, loserID, survivorID string) error {
	if loserID == survivorID {
		return fmt.Errorf("cannot merge cluster %s into itself", loserID)
	}
	loser, err := c.store.GetCluster(ctx, loserID)
	if err != nil {
		return fmt.Errorf("loading losing cluster %s: %w", loserID, err)
	}
	survivor, err := c.store.GetCluster(ctx, survivorID)
	if err != nil {
		return fmt.Errorf("loading surviving cluster %s: %w", survivorID, err)
	}
	// A cluster from a stale suggestion may have been merged or archived
	// since the suggestion was produced.
	if loser.Status != types.ClusterActive {
		return fmt.Errorf("losing cluster %s is %s, not active", loserID, loser.Status)
	}
	if survivor.Status != types.ClusterActive {
		return fmt.Errorf("surviving cluster %s is %s, not active", survivorID, survivor.Status)
	}

	now := time.Now().UTC()
	for _, memberID := range loser.MemberIDs {
		if !survivor.HasMember(memberID) {
			survivor.MemberIDs = append(survivor.MemberIDs, memberID)
		}
		article, err := c.store.GetArticle(ctx, memberID)
		if err != nil {
			c.logger.Warn("loading member during merge", "article_id", memberID, "error", err)
			continue
		}
		article.ClusterID = survivor.ID
		article.UpdatedAt = now
		if err := c.store.SaveArticle(ctx, article); err != nil {
			return fmt.Errorf("reassigning article %s: %w", memberID, err)
		}
	}

	survivor.MeanEmbedding = c.meanOfMembers(ctx, survivor)
	survivor.UpdatedAt = now
	if err := c.store.SaveCluster(ctx, survivor); err != nil {
		return fmt.Errorf("persisting surviving cluster: %w", err)
	}

	loser.Status = types.ClusterMerged
	loser.UpdatedAt = now
	if err := c.store.SaveCluster(ctx, loser); err != nil {
		return fmt.Errorf("persisting merged cluster: %w", err)
	}

	c.logger.Info("merged clusters",
		"loser_id", loser.ID,
		"survivor_id", survivor.ID,
		"members_moved", len(loser.MemberIDs))
	return nil
}
