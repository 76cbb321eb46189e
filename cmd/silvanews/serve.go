package silvanews

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sn3fru/silvanews-sub000/pkg/config"
	"github.com/sn3fru/silvanews-sub000/pkg/logger"
	"github.com/sn3fru/silvanews-sub000/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the silvanews HTTP server",
	Long: `Start the silvanews HTTP server.

The server provides endpoints for:
- Enriching article batches
- Inspecting articles, clusters, entities and edges by id
- Cluster context and merge advisories
- Health checks`,
	RunE: runServe,
}

var (
	serveHost string
	servePort int
	serveMode string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "localhost", "Server host")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Server port")
	serveCmd.Flags().StringVar(&serveMode, "mode", "release", "Server mode (debug, release, test)")

	serveCmd.Flags().String("graph-driver", "neo4j", "Graph driver (neo4j, memory)")
	serveCmd.Flags().String("graph-uri", "bolt://localhost:7687", "Graph database URI")
	serveCmd.Flags().String("index-backend", "badger", "Vector index backend (badger, memory)")
	serveCmd.Flags().String("index-path", "./silvanews_index", "Vector index path")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	overrideConfigWithFlags(cmd, cfg)

	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	client, catalog, err := buildClient(cfg, log)
	if err != nil {
		return err
	}

	srv := server.New(cfg, client, catalog, log)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		if err := client.Close(shutdownCtx); err != nil {
			log.Warn("closing client", "error", err)
		}
		return nil
	}
}

func overrideConfigWithFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serveMode
	}
	if cmd.Flags().Changed("graph-driver") {
		cfg.Graph.Driver, _ = cmd.Flags().GetString("graph-driver")
	}
	if cmd.Flags().Changed("graph-uri") {
		cfg.Graph.URI, _ = cmd.Flags().GetString("graph-uri")
	}
	if cmd.Flags().Changed("index-backend") {
		cfg.Index.Backend, _ = cmd.Flags().GetString("index-backend")
	}
	if cmd.Flags().Changed("index-path") {
		cfg.Index.Path, _ = cmd.Flags().GetString("index-path")
	}
}
