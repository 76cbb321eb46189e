package silvanews

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sn3fru/silvanews-sub000/pkg/config"
	"github.com/sn3fru/silvanews-sub000/pkg/logger"
	"github.com/sn3fru/silvanews-sub000/pkg/types"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich [file]",
	Short: "Enrich a batch of articles from a JSON file",
	Long: `Enrich a batch of articles read from a JSON file and print the
batch result. The file holds an array of articles:

  [{"id": "a-1", "raw_text": "...", "published_at": "2026-08-29T12:00:00Z"}]`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrich,
}

func init() {
	rootCmd.AddCommand(enrichCmd)

	enrichCmd.Flags().Duration("timeout", 10*time.Minute, "Batch timeout")
}

func runEnrich(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading batch file: %w", err)
	}
	var articles []*types.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return fmt.Errorf("parsing batch file: %w", err)
	}
	for _, article := range articles {
		article.Status = types.StatusPending
		if article.PublishedAt.IsZero() {
			article.PublishedAt = time.Now().UTC()
		}
	}

	client, _, err := buildClient(cfg, log)
	if err != nil {
		return err
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	defer client.Close(context.Background())

	result, err := client.EnrichBatch(ctx, articles)
	if err != nil {
		return fmt.Errorf("enriching batch: %w", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
