package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sn3fru/silvanews-sub000/pkg/config"
	"github.com/sn3fru/silvanews-sub000/pkg/server/dto"
)

// CatalogHandler exposes the tag/priority vocabulary and its reload.
type CatalogHandler struct {
	catalog *config.Catalog
}

func NewCatalogHandler(catalog *config.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// GetCatalog handles GET /api/v1/catalog.
func (h *CatalogHandler) GetCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, dto.Ok(gin.H{
		"tags":       h.catalog.Tags(),
		"priorities": h.catalog.Priorities(),
	}))
}

// ReloadCatalog handles POST /api/v1/catalog/reload. A failed reload
// keeps the previous vocabulary in place.
func (h *CatalogHandler) ReloadCatalog(c *gin.Context) {
	if err := h.catalog.Reload(); err != nil {
		c.JSON(http.StatusInternalServerError, dto.Fail(err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.Ok(gin.H{
		"tags":       h.catalog.Tags(),
		"priorities": h.catalog.Priorities(),
	}))
}
