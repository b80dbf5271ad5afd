package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/szlkpr/ims-ml-service/internal/domain"
	"github.com/szlkpr/ims-ml-service/internal/forecast"
	"github.com/szlkpr/ims-ml-service/internal/forecaster"
)

func ptr(v float64) *float64 { return &v }

func TestOptimizeWithoutEngine(t *testing.T) {
	runs := &fakeRuns{}
	pub := &fakePublisher{}
	archive := &fakeArchive{}
	svc := NewInventoryService(NewGateway(nil, nil, nil, nil, GatewayConfig{}), pub, archive, runs, InventoryConfig{ArchivePrefix: "reports"})
	svc.now = func() time.Time { return time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC) }

	resp, err := svc.Optimize(context.Background(), domain.OptimizationRequest{
		ProductData: map[string]domain.ProductStock{
			"rice":  {CurrentStock: ptr(5)},
			"beans": {CurrentStock: ptr(80), AvgDemand: ptr(5)},
		},
	})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, domain.GoalMinimizeCost, resp.OptimizationGoal)
	assert.Equal(t, 2, resp.ProductsOptimized)

	rice := resp.Results["rice"]
	assert.Equal(t, 10.0, rice.PredictedDemand)
	assert.Equal(t, 70.0, rice.RecommendedStock)
	assert.True(t, rice.ReorderNeeded)
	assert.Equal(t, 65.0, rice.ReorderQuantity)
	assert.Equal(t, domain.RiskHigh, rice.RiskLevel)

	beans := resp.Results["beans"]
	assert.Equal(t, 35.0, beans.RecommendedStock)
	assert.False(t, beans.ReorderNeeded)
	assert.Equal(t, 0.0, beans.ReorderQuantity)
	assert.Equal(t, domain.RiskLow, beans.RiskLevel)

	assert.Equal(t, domain.OptimizationSummary{
		TotalProducts:          2,
		ReorderNeeded:          1,
		HighRiskProducts:       1,
		OptimizationEfficiency: 0.5,
	}, resp.Summary)

	require.Len(t, runs.optimizations, 1)
	assert.Equal(t, 2, runs.optimizations[0].TotalProducts)
	assert.Len(t, runs.decisions, 2)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "rice", pub.events[0].Product)
	assert.Equal(t, 65.0, pub.events[0].ReorderQuantity)

	assert.Equal(t, "reports/optimization/2024/03/09/minimize_cost-1709971200.json", resp.ReportKey)
	require.Contains(t, archive.objects, resp.ReportKey)
	var archived map[string]any
	require.NoError(t, json.Unmarshal(archive.objects[resp.ReportKey], &archived))
	assert.Equal(t, "minimize_cost", archived["optimization_goal"])
}

func TestOptimizeGoals(t *testing.T) {
	tests := []struct {
		goal domain.OptimizationGoal
		want float64
	}{
		{domain.GoalMinimizeCost, 100},
		{domain.GoalMaximizeAvailability, 100},
		// unknown goals are not capped by max_stock
		{"balanced", 200},
	}

	svc := NewInventoryService(nil, nil, nil, nil, InventoryConfig{})
	for _, tt := range tests {
		t.Run(string(tt.goal), func(t *testing.T) {
			resp, err := svc.Optimize(context.Background(), domain.OptimizationRequest{
				OptimizationGoal: tt.goal,
				ProductData:      map[string]domain.ProductStock{"rice": {AvgDemand: ptr(20)}},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.goal, resp.OptimizationGoal)
			assert.Equal(t, tt.want, resp.Results["rice"].RecommendedStock)
			assert.Empty(t, resp.ReportKey)
		})
	}
}

func TestOptimizeEmptyRequest(t *testing.T) {
	svc := NewInventoryService(nil, nil, nil, nil, InventoryConfig{})

	resp, err := svc.Optimize(context.Background(), domain.OptimizationRequest{})
	require.NoError(t, err)
	assert.Zero(t, resp.ProductsOptimized)
	assert.Empty(t, resp.Results)
	assert.Zero(t, resp.Summary.OptimizationEfficiency)
}

func TestOptimizeRejectsNegativeQuantities(t *testing.T) {
	svc := NewInventoryService(nil, nil, nil, nil, InventoryConfig{})

	_, err := svc.Optimize(context.Background(), domain.OptimizationRequest{
		ProductData: map[string]domain.ProductStock{"rice": {CurrentStock: ptr(-1)}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestOptimizeUsesTrainedEngineForDemand(t *testing.T) {
	engine := &fakeEngine{}
	engine.trained.Store(true)
	g := NewGateway(engine, forecast.NewFallback(zeroNoise{}), nil, nil, GatewayConfig{EngineConfigured: true})
	svc := NewInventoryService(g, nil, nil, nil, InventoryConfig{Concurrency: 2})

	resp, err := svc.Optimize(context.Background(), domain.OptimizationRequest{
		ProductData: map[string]domain.ProductStock{
			"rice":  {CurrentStock: ptr(100), AvgDemand: ptr(1)},
			"beans": {CurrentStock: ptr(100), HistoricalData: points(4, 5, 6)},
		},
	})
	require.NoError(t, err)

	for _, product := range []string{"rice", "beans"} {
		assert.Equal(t, 20.0, resp.Results[product].PredictedDemand, product)
	}
	assert.EqualValues(t, 2, engine.fcCalls.Load())

	engine.mu.Lock()
	defer engine.mu.Unlock()
	for _, req := range engine.requests {
		assert.Equal(t, 7, req.Horizon)
		switch req.Product {
		case "rice":
			// synthetic history with zero noise sits at the mean
			require.Len(t, req.History, 30)
			assert.Equal(t, "2023-01-01", req.History[0].Date)
			assert.Equal(t, 50.0, req.History[0].Value)
		case "beans":
			assert.Len(t, req.History, 3)
		}
	}
}

func TestOptimizeIgnoresUntrainedEngine(t *testing.T) {
	engine := &fakeEngine{}
	g := NewGateway(engine, nil, nil, nil, GatewayConfig{EngineConfigured: true})
	svc := NewInventoryService(g, nil, nil, nil, InventoryConfig{})

	resp, err := svc.Optimize(context.Background(), domain.OptimizationRequest{
		ProductData: map[string]domain.ProductStock{"rice": {AvgDemand: ptr(3)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3.0, resp.Results["rice"].PredictedDemand)
	assert.Zero(t, engine.trainCalls.Load())
	assert.Zero(t, engine.fcCalls.Load())
}

func TestOptimizeFailsWholeRequestOnEngineError(t *testing.T) {
	engine := &fakeEngine{forecastFn: func(req forecaster.Request) (*domain.ForecastResult, error) {
		if strings.HasPrefix(req.Product, "bad") {
			return nil, errors.New("model exploded")
		}
		return constantForecast(req.Horizon, 1), nil
	}}
	engine.trained.Store(true)
	runs := &fakeRuns{}
	pub := &fakePublisher{}
	g := NewGateway(engine, forecast.NewFallback(zeroNoise{}), nil, nil, GatewayConfig{EngineConfigured: true})
	svc := NewInventoryService(g, pub, nil, runs, InventoryConfig{})

	resp, err := svc.Optimize(context.Background(), domain.OptimizationRequest{
		ProductData: map[string]domain.ProductStock{
			"rice":    {},
			"bad-egg": {},
		},
	})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, domain.ErrForecaster)
	assert.Empty(t, runs.optimizations)
	assert.Empty(t, pub.events)
}
