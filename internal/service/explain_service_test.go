package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/szlkpr/ims-ml-service/internal/domain"
)

func TestExplainWithoutReasoner(t *testing.T) {
	svc := NewExplainService(NewGateway(nil, nil, nil, nil, GatewayConfig{}))

	got, err := svc.Explain(context.Background(), domain.ExplanationRequest{ProductName: "rice", PredictionValue: 42.126})
	require.NoError(t, err)

	assert.True(t, got.Success)
	assert.Equal(t, "mock", got.Explanation["method"])
	assert.Equal(t, 0.7, got.Explanation["confidence"])
	assert.Contains(t, got.HumanReadable, "42.13")
}

func TestExplainRequiresProduct(t *testing.T) {
	svc := NewExplainService(nil)
	_, err := svc.Explain(context.Background(), domain.ExplanationRequest{PredictionValue: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestExplainWithReasoner(t *testing.T) {
	engine := newGraphEngine()
	engine.reasoning = &domain.Reasoning{
		ReasoningChain:  []string{"demand up", "price up"},
		ApplicableRules: []string{"festival_demand", "supply_shock"},
		Confidence:      0.83,
		CausalEffects:   []map[string]any{{"cause": "fuel", "effect": 0.2}},
	}
	svc := NewExplainService(NewGateway(engine, nil, nil, nil, GatewayConfig{}))

	got, err := svc.Explain(context.Background(), domain.ExplanationRequest{
		ProductName:     "rice",
		PredictionValue: 100,
		Context:         map[string]any{"demand_level": "high", "days_offset": float64(3)},
	})
	require.NoError(t, err)

	q := engine.lastQuery
	assert.Equal(t, "Why will rice price be 100?", q.Question)
	assert.Equal(t, 100.0, q.CurrentPrice)
	assert.Equal(t, "high", q.DemandLevel)
	assert.Equal(t, 3, q.DaysOffset)
	assert.InDelta(t, 90.0, q.BaselinePrice, 1e-9)

	assert.Equal(t, []string{"demand up", "price up"}, got.Explanation["reasoning_chain"])
	assert.Equal(t, 0.83, got.Explanation["confidence"])
	assert.Equal(t, map[string]any{}, got.Explanation["counterfactual_analysis"])
	assert.Equal(t,
		"The prediction for rice is driven by 2 applicable market rules and 1 causal relationships, with 83% confidence.",
		got.HumanReadable)
}

func TestExplainReasonerFailure(t *testing.T) {
	svc := NewExplainService(NewGateway(newGraphEngine(), nil, nil, nil, GatewayConfig{}))

	_, err := svc.Explain(context.Background(), domain.ExplanationRequest{ProductName: "rice", PredictionValue: 1})
	assert.ErrorIs(t, err, domain.ErrForecaster)
}
