package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/szlkpr/ims-ml-service/internal/domain"
)

const (
	defaultHistoryLimit = 20
)

type ForecastHandler struct {
	forecasts ForecastService
}

func NewForecastHandler(forecasts ForecastService) *ForecastHandler {
	return &ForecastHandler{forecasts: forecasts}
}

// Health reports liveness and the forecaster's state. It never fails.
func (h *ForecastHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.forecasts.Health())
}

// PredictDemand handles POST /predict/demand
func (h *ForecastHandler) PredictDemand(c *gin.Context) {
	req := domain.NewForecastRequest()
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}

	resp, err := h.forecasts.Predict(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, "failed to generate forecast")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetHistory handles GET /predict/history/:product
func (h *ForecastHandler) GetHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "invalid limit", err)
			return
		}
		limit = n
	}

	product := c.Param("product")
	runs, err := h.forecasts.History(c.Request.Context(), product, limit)
	if err != nil {
		writeError(c, err, "failed to fetch forecast history")
		return
	}
	if runs == nil {
		runs = []domain.ForecastRun{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"product": product,
		"runs":    runs,
	})
}

// ResetForecaster handles POST /admin/forecaster/reset
func (h *ForecastHandler) ResetForecaster(c *gin.Context) {
	if err := h.forecasts.Reset(c.Request.Context()); err != nil {
		writeError(c, err, "failed to reset forecaster")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"forecaster_state": h.forecasts.State(),
	})
}
