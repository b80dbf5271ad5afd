package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/szlkpr/ims-ml-service/internal/domain"
	"github.com/szlkpr/ims-ml-service/internal/forecast"
	"github.com/szlkpr/ims-ml-service/internal/forecaster"
)

const (
	defaultDemandLevel  = "normal"
	baselinePriceFactor = 0.9
)

type ExplainService struct {
	gateway *Gateway
}

func NewExplainService(gateway *Gateway) *ExplainService {
	return &ExplainService{gateway: gateway}
}

// Explain asks the engine's reasoner why product is predicted at the given
// value. Engines without a reasoner get the mock explanation.
func (s *ExplainService) Explain(ctx context.Context, req domain.ExplanationRequest) (*domain.ExplanationResponse, error) {
	if strings.TrimSpace(req.ProductName) == "" {
		return nil, fmt.Errorf("%w: product_name is required", domain.ErrInvalidRequest)
	}

	var reasoner forecaster.Reasoner
	if s.gateway != nil {
		if r, ok := s.gateway.Reasoner(); ok {
			reasoner = r
		}
	}
	if reasoner == nil {
		return forecast.MockExplanation(req.ProductName, req.PredictionValue), nil
	}

	q := reasoningQuery(req)
	reasoning, err := reasoner.Explain(ctx, q)
	if err != nil {
		log.Error().Err(err).Str("product", req.ProductName).Msg("explain: reasoning failed")
		return nil, fmt.Errorf("%w: explain: %w", domain.ErrForecaster, err)
	}
	if reasoning == nil {
		return nil, fmt.Errorf("%w: explain: engine returned no reasoning", domain.ErrForecaster)
	}

	return &domain.ExplanationResponse{
		Success:    true,
		Product:    req.ProductName,
		Prediction: req.PredictionValue,
		Explanation: map[string]any{
			"reasoning_chain":         nonNilStrings(reasoning.ReasoningChain),
			"applicable_rules":        nonNilStrings(reasoning.ApplicableRules),
			"confidence":              reasoning.Confidence,
			"causal_effects":          nonNilMaps(reasoning.CausalEffects),
			"counterfactual_analysis": nonNilMap(reasoning.Counterfactual),
		},
		HumanReadable: humanReadable(req.ProductName, reasoning),
	}, nil
}

func reasoningQuery(req domain.ExplanationRequest) domain.ReasoningQuery {
	q := domain.ReasoningQuery{
		Question:      fmt.Sprintf("Why will %s price be %v?", req.ProductName, req.PredictionValue),
		Product:       req.ProductName,
		CurrentPrice:  req.PredictionValue,
		DemandLevel:   defaultDemandLevel,
		ScenarioPrice: req.PredictionValue,
		BaselinePrice: req.PredictionValue * baselinePriceFactor,
	}
	if v, ok := number(req.Context["current_price"]); ok {
		q.CurrentPrice = v
	}
	if v, ok := req.Context["demand_level"].(string); ok && v != "" {
		q.DemandLevel = v
	}
	if v, ok := number(req.Context["days_offset"]); ok {
		q.DaysOffset = int(v)
	}
	if v, ok := number(req.Context["baseline_price"]); ok {
		q.BaselinePrice = v
	}
	return q
}

// number accepts the numeric shapes encoding/json produces for any-typed fields.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func humanReadable(product string, r *domain.Reasoning) string {
	return fmt.Sprintf(
		"The prediction for %s is driven by %d applicable market rules and %d causal relationships, with %.0f%% confidence.",
		product, len(r.ApplicableRules), len(r.CausalEffects), r.Confidence*100,
	)
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMaps(m []map[string]any) []map[string]any {
	if m == nil {
		return []map[string]any{}
	}
	return m
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
