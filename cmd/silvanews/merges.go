package silvanews

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	core "github.com/sn3fru/silvanews-sub000"
	"github.com/sn3fru/silvanews-sub000/pkg/config"
	"github.com/sn3fru/silvanews-sub000/pkg/logger"
	"github.com/sn3fru/silvanews-sub000/pkg/types"
)

var suggestMergesCmd = &cobra.Command{
	Use:   "suggest-merges",
	Short: "Print advisory merge suggestions for recent clusters",
	Long: `Print merge suggestions for active clusters touched within the
given window. The output is advisory; no cluster is modified.`,
	RunE: runSuggestMerges,
}

func init() {
	rootCmd.AddCommand(suggestMergesCmd)

	suggestMergesCmd.Flags().Int("window-days", 7, "Cluster window in days")
	suggestMergesCmd.Flags().Bool("apply", false, "Apply every suggestion (loser is the lexically larger id)")
}

func runSuggestMerges(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	client, _, err := buildClient(cfg, log)
	if err != nil {
		return err
	}
	ctx := context.Background()
	defer client.Close(ctx)

	windowDays, _ := cmd.Flags().GetInt("window-days")
	since := time.Now().UTC().Add(-time.Duration(windowDays) * 24 * time.Hour)

	suggestions, err := client.SuggestMerges(ctx, since)
	if err != nil {
		return fmt.Errorf("suggesting merges: %w", err)
	}

	out, err := json.MarshalIndent(suggestions, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	apply, _ := cmd.Flags().GetBool("apply")
	if !apply {
		return nil
	}
	for _, suggestion := range suggestions {
		// Re-fetch both clusters: an earlier merge in this loop may have
		// already folded one of them.
		if !clusterActive(ctx, client, suggestion.ClusterA) || !clusterActive(ctx, client, suggestion.ClusterB) {
			log.Info("skipping merge, cluster no longer active",
				"cluster_a", suggestion.ClusterA,
				"cluster_b", suggestion.ClusterB)
			continue
		}
		if err := client.ApplyMerge(ctx, suggestion.ClusterB, suggestion.ClusterA); err != nil {
			log.Warn("applying merge",
				"loser_id", suggestion.ClusterB,
				"survivor_id", suggestion.ClusterA,
				"error", err)
		}
	}
	return nil
}

func clusterActive(ctx context.Context, client *core.Client, id string) bool {
	cluster, err := client.GetCluster(ctx, id)
	return err == nil && cluster.Status == types.ClusterActive
}
