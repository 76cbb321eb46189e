package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	silvanews "github.com/sn3fru/silvanews-sub000"
	"github.com/sn3fru/silvanews-sub000/pkg/server/dto"
	"github.com/sn3fru/silvanews-sub000/pkg/types"
)

// EnrichHandler handles batch ingestion requests.
type EnrichHandler struct {
	core silvanews.Silvanews
}

func NewEnrichHandler(core silvanews.Silvanews) *EnrichHandler {
	return &EnrichHandler{core: core}
}

// EnrichBatch handles POST /api/v1/enrich. The batch always finishes;
// degraded articles are reported in the result, not as an HTTP error.
func (h *EnrichHandler) EnrichBatch(c *gin.Context) {
	var req dto.EnrichRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Fail(err.Error()))
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, dto.Fail(err.Error()))
		return
	}

	articles := make([]*types.Article, len(req.Articles))
	for i := range req.Articles {
		articles[i] = req.Articles[i].ToArticle()
	}

	result, err := h.core.EnrichBatch(c.Request.Context(), articles)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.Fail(err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.Ok(result))
}
