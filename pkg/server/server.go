// Package server exposes the enrichment core over HTTP: batch ingest,
// the read-only inspection surface, merge advisories, and health probes.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	silvanews "github.com/sn3fru/silvanews-sub000"
	"github.com/sn3fru/silvanews-sub000/pkg/config"
	"github.com/sn3fru/silvanews-sub000/pkg/server/handlers"
)

// Server represents the HTTP server.
type Server struct {
	config  *config.Config
	router  *gin.Engine
	core    silvanews.Silvanews
	catalog *config.Catalog
	logger  *slog.Logger
	server  *http.Server
}

// New creates a new server instance.
func New(cfg *config.Config, core silvanews.Silvanews, catalog *config.Catalog, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:  cfg,
		core:    core,
		catalog: catalog,
		logger:  logger,
	}
}

// Setup sets up the server routes and middleware.
func (s *Server) Setup() {
	gin.SetMode(s.config.Server.Mode)

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger(s.logger))

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.core)
	enrichHandler := handlers.NewEnrichHandler(s.core)
	inspectHandler := handlers.NewInspectHandler(s.core)
	catalogHandler := handlers.NewCatalogHandler(s.catalog)

	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)
	s.router.GET("/live", healthHandler.LivenessCheck)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/enrich", enrichHandler.EnrichBatch)

		v1.GET("/articles/:id", inspectHandler.GetArticle)
		v1.GET("/clusters/:id", inspectHandler.GetCluster)
		v1.GET("/clusters/:id/context", inspectHandler.GetClusterContext)
		v1.GET("/entities/:id", inspectHandler.GetEntity)
		v1.GET("/edges/:id", inspectHandler.GetEdge)
		v1.GET("/merges", inspectHandler.SuggestMerges)

		v1.GET("/catalog", catalogHandler.GetCatalog)
		v1.POST("/catalog/reload", catalogHandler.ReloadCatalog)
	}
}

// Router returns the configured router, used by tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the server.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping server")
	return s.server.Shutdown(ctx)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status())
	}
}
