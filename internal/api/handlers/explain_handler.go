package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/szlkpr/ims-ml-service/internal/domain"
)

type ExplainHandler struct {
	explain ExplainService
}

func NewExplainHandler(explain ExplainService) *ExplainHandler {
	return &ExplainHandler{explain: explain}
}

// ExplainPrediction handles POST /explain/prediction. The body is either
// {"product_name", "prediction_value", "context"} or the context map alone,
// in which case product_name and prediction_value come from the query string.
func (h *ExplainHandler) ExplainPrediction(c *gin.Context) {
	req, err := bindExplanationRequest(c)
	if err != nil {
		badRequest(c, "invalid request body", err)
		return
	}

	if req.ProductName == "" {
		req.ProductName = strings.TrimSpace(c.Query("product_name"))
	}
	if raw := c.Query("prediction_value"); raw != "" && req.PredictionValue == 0 {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			badRequest(c, "invalid prediction_value", err)
			return
		}
		req.PredictionValue = v
	}

	resp, err := h.explain.Explain(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, "failed to explain prediction")
		return
	}
	c.JSON(http.StatusOK, resp)
}

var explanationFields = []string{"product_name", "prediction_value", "context"}

func bindExplanationRequest(c *gin.Context) (domain.ExplanationRequest, error) {
	var req domain.ExplanationRequest

	var fields map[string]json.RawMessage
	if err := c.ShouldBindBodyWith(&fields, binding.JSON); err != nil {
		if errors.Is(err, io.EOF) {
			return req, nil
		}
		return req, err
	}

	for _, key := range explanationFields {
		if _, ok := fields[key]; ok {
			err := c.ShouldBindBodyWith(&req, binding.JSON)
			return req, err
		}
	}

	if len(fields) > 0 {
		err := c.ShouldBindBodyWith(&req.Context, binding.JSON)
		return req, err
	}
	return req, nil
}
