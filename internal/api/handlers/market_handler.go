package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/szlkpr/ims-ml-service/internal/domain"
)

type MarketHandler struct {
	market MarketService
}

func NewMarketHandler(market MarketService) *MarketHandler {
	return &MarketHandler{market: market}
}

// AnalyzeStability handles POST /analyze/market-stability. A missing graph is
// reported in-band rather than as an HTTP error.
func (h *MarketHandler) AnalyzeStability(c *gin.Context) {
	var req domain.MarketAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}

	resp, err := h.market.AnalyzeStability(c.Request.Context(), req)
	if errors.Is(err, domain.ErrModelUnavailable) {
		c.JSON(http.StatusOK, gin.H{
			"success":  false,
			"message":  modelUnavailableMessage,
			"analysis": gin.H{},
		})
		return
	}
	if err != nil {
		writeError(c, err, "failed to analyze market stability")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetKnowledgeInsights handles GET /insights/knowledge-graph/:product
func (h *MarketHandler) GetKnowledgeInsights(c *gin.Context) {
	resp, err := h.market.KnowledgeInsights(c.Request.Context(), c.Param("product"))
	if errors.Is(err, domain.ErrModelUnavailable) {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": modelUnavailableMessage,
		})
		return
	}
	if err != nil {
		writeError(c, err, "failed to fetch knowledge graph insights")
		return
	}
	c.JSON(http.StatusOK, resp)
}
