package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/szlkpr/ims-ml-service/internal/domain"
)

type InventoryHandler struct {
	inventory InventoryService
}

func NewInventoryHandler(inventory InventoryService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

// OptimizeInventory handles POST /optimize/inventory. The body is the
// product map itself, with the goal in the optimization_goal query
// parameter, or the map wrapped as {"product_data": ..., "optimization_goal": ...}.
func (h *InventoryHandler) OptimizeInventory(c *gin.Context) {
	req, err := bindOptimizationRequest(c)
	if err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	if req.OptimizationGoal == "" {
		req.OptimizationGoal = domain.OptimizationGoal(strings.TrimSpace(c.Query("optimization_goal")))
	}

	resp, err := h.inventory.Optimize(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, "failed to optimize inventory")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func bindOptimizationRequest(c *gin.Context) (domain.OptimizationRequest, error) {
	var req domain.OptimizationRequest

	var fields map[string]json.RawMessage
	if err := c.ShouldBindBodyWith(&fields, binding.JSON); err != nil {
		return req, err
	}
	if fields == nil {
		return req, errors.New("body must be a JSON object")
	}

	if _, wrapped := fields["product_data"]; !wrapped {
		err := c.ShouldBindBodyWith(&req.ProductData, binding.JSON)
		return req, err
	}

	for key := range fields {
		if key != "product_data" && key != "optimization_goal" {
			return req, fmt.Errorf("unexpected field %q next to product_data", key)
		}
	}
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		return req, err
	}
	if req.ProductData == nil {
		return req, errors.New("product_data must be an object")
	}
	return req, nil
}
