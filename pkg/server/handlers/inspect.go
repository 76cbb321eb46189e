package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	silvanews "github.com/sn3fru/silvanews-sub000"
	"github.com/sn3fru/silvanews-sub000/pkg/graph"
	"github.com/sn3fru/silvanews-sub000/pkg/server/dto"
)

// InspectHandler serves the read-only audit surface: articles, clusters,
// entities and edges by id, cluster context, and merge advisories.
type InspectHandler struct {
	core silvanews.Silvanews
}

func NewInspectHandler(core silvanews.Silvanews) *InspectHandler {
	return &InspectHandler{core: core}
}

// GetArticle handles GET /api/v1/articles/:id.
func (h *InspectHandler) GetArticle(c *gin.Context) {
	article, err := h.core.GetArticle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Ok(article))
}

// GetCluster handles GET /api/v1/clusters/:id.
func (h *InspectHandler) GetCluster(c *gin.Context) {
	cluster, err := h.core.GetCluster(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Ok(cluster))
}

// GetClusterContext handles GET /api/v1/clusters/:id/context.
func (h *InspectHandler) GetClusterContext(c *gin.Context) {
	cluster, err := h.core.GetCluster(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondLookupError(c, err)
		return
	}
	bundle := h.core.BuildContext(c.Request.Context(), cluster)
	c.JSON(http.StatusOK, dto.Ok(bundle))
}

// GetEntity handles GET /api/v1/entities/:id.
func (h *InspectHandler) GetEntity(c *gin.Context) {
	entity, err := h.core.GetEntity(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Ok(entity))
}

// GetEdge handles GET /api/v1/edges/:id.
func (h *InspectHandler) GetEdge(c *gin.Context) {
	edge, err := h.core.GetEdge(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Ok(edge))
}

// SuggestMerges handles GET /api/v1/merges?window_days=7.
func (h *InspectHandler) SuggestMerges(c *gin.Context) {
	windowDays := 7
	if raw := c.Query("window_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, dto.Fail("window_days must be a positive integer"))
			return
		}
		windowDays = parsed
	}

	since := time.Now().UTC().Add(-time.Duration(windowDays) * 24 * time.Hour)
	suggestions, err := h.core.SuggestMerges(c.Request.Context(), since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.Fail(err.Error()))
		return
	}
	if suggestions == nil {
		suggestions = []silvanews.MergeSuggestion{}
	}
	c.JSON(http.StatusOK, dto.Ok(suggestions))
}

func respondLookupError(c *gin.Context, err error) {
	if errors.Is(err, graph.ErrNotFound) {
		c.JSON(http.StatusNotFound, dto.Fail("not found"))
		return
	}
	c.JSON(http.StatusInternalServerError, dto.Fail(err.Error()))
}
