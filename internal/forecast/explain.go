package forecast

import (
	"fmt"

	"github.com/szlkpr/ims-ml-service/internal/domain"
)

const mockExplanationConfidence = 0.7

// MockExplanation answers /explain/prediction when no reasoning engine is present.
func MockExplanation(product string, value float64) *domain.ExplanationResponse {
	return &domain.ExplanationResponse{
		Success:    true,
		Product:    product,
		Prediction: value,
		Explanation: map[string]any{
			"method":     "mock",
			"factors":    []string{"historical_trend", "seasonal_pattern"},
			"confidence": mockExplanationConfidence,
		},
		HumanReadable: fmt.Sprintf("The prediction for %s is based on historical patterns and shows expected value of %.2f", product, value),
	}
}
