package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/szlkpr/ims-ml-service/internal/domain"
	"github.com/szlkpr/ims-ml-service/internal/forecast"
	"github.com/szlkpr/ims-ml-service/internal/forecaster"
)

func request(product string, horizon int, values ...float64) domain.ForecastRequest {
	req := domain.NewForecastRequest()
	req.ProductName = product
	req.HistoricalData = points(values...)
	req.ForecastHorizon = horizon
	return req
}

func TestGatewayUsesFallbackWithoutEngine(t *testing.T) {
	runs := &fakeRuns{}
	g := NewGateway(nil, forecast.NewFallback(zeroNoise{}), nil, runs, GatewayConfig{})

	resp, err := g.Predict(context.Background(), request("rice", 3, 10, 12, 14))
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "rice", resp.ProductName)
	assert.Equal(t, domain.SourceFallback, resp.Source)
	assert.InDeltaSlice(t, []float64{16, 18, 20}, resp.Predictions, 1e-9)
	assert.InDeltaSlice(t, []float64{14.4, 16.2, 18}, resp.ConfidenceIntervals["lower"], 1e-9)
	assert.InDeltaSlice(t, []float64{17.6, 19.8, 22}, resp.ConfidenceIntervals["upper"], 1e-9)
	assert.Equal(t, forecast.FallbackCertainty, resp.CertaintyScore)
	assert.Equal(t, "trend_based", resp.Explanations["method"])

	require.Len(t, runs.forecasts, 1)
	assert.Equal(t, domain.SourceFallback, runs.forecasts[0].Source)
	assert.Equal(t, 3, runs.forecasts[0].Horizon)

	assert.False(t, g.Available())
	assert.Equal(t, domain.StateUnavailable, g.State())
}

func TestGatewayRejectsInvalidRequests(t *testing.T) {
	engine := &fakeEngine{}
	g := NewGateway(engine, nil, nil, nil, GatewayConfig{EngineConfigured: true, MaxHorizon: 90})

	tests := []struct {
		name string
		req  domain.ForecastRequest
		want error
	}{
		{"missing product", request("", 5, 1, 2), domain.ErrInvalidRequest},
		{"no history", request("rice", 5), domain.ErrInsufficientData},
		{"zero horizon", request("rice", 0, 1, 2), domain.ErrInvalidRequest},
		{"horizon above max", request("rice", 91, 1, 2), domain.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Predict(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Zero(t, engine.trainCalls.Load())
	assert.Zero(t, engine.fcCalls.Load())
}

func TestGatewayTrainsOnFirstUse(t *testing.T) {
	engine := &fakeEngine{}
	g := NewGateway(engine, nil, nil, nil, GatewayConfig{EngineConfigured: true})
	assert.Equal(t, "untrained", g.State())

	resp, err := g.Predict(context.Background(), request("rice", 4, 5, 6, 7))
	require.NoError(t, err)

	assert.Equal(t, domain.SourceEngine, resp.Source)
	assert.Equal(t, []float64{20, 20, 20, 20}, resp.Predictions)
	assert.NotNil(t, resp.Explanations)
	assert.NotNil(t, resp.Recommendations)
	assert.EqualValues(t, 1, engine.trainCalls.Load())
	assert.Equal(t, "trained", g.State())

	last := engine.lastRequest()
	assert.Equal(t, "rice", last.Product)
	assert.Equal(t, 4, last.Horizon)
	assert.True(t, last.GenerateScenarios)

	_, err = g.Predict(context.Background(), request("rice", 4, 5, 6, 7))
	require.NoError(t, err)
	assert.EqualValues(t, 1, engine.trainCalls.Load())
}

func TestGatewayConcurrentRequestsShareOneTraining(t *testing.T) {
	engine := &fakeEngine{trainDelay: 50 * time.Millisecond}
	g := NewGateway(engine, nil, nil, nil, GatewayConfig{EngineConfigured: true})

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Predict(context.Background(), request("rice", 2, 1, 2, 3))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, engine.trainCalls.Load())
	assert.EqualValues(t, callers, engine.fcCalls.Load())
}

func TestGatewayTrainingFailureLeavesEngineUntrained(t *testing.T) {
	engine := &fakeEngine{trainErr: errors.New("out of memory")}
	g := NewGateway(engine, nil, nil, nil, GatewayConfig{EngineConfigured: true})

	_, err := g.Predict(context.Background(), request("rice", 2, 1, 2))
	assert.ErrorIs(t, err, domain.ErrForecaster)
	assert.Equal(t, "untrained", g.State())
	assert.Zero(t, engine.fcCalls.Load())

	engine.trainErr = nil
	_, err = g.Predict(context.Background(), request("rice", 2, 1, 2))
	require.NoError(t, err)
	assert.EqualValues(t, 2, engine.trainCalls.Load())
	assert.Equal(t, "trained", g.State())
}

func TestGatewayEngineFailureIsNotMasked(t *testing.T) {
	tests := []struct {
		name string
		fn   func(req forecaster.Request) (*domain.ForecastResult, error)
	}{
		{"engine error", func(forecaster.Request) (*domain.ForecastResult, error) {
			return nil, errors.New("model exploded")
		}},
		{"short predictions", func(req forecaster.Request) (*domain.ForecastResult, error) {
			return constantForecast(req.Horizon-1, 5), nil
		}},
		{"mismatched band", func(req forecaster.Request) (*domain.ForecastResult, error) {
			res := constantForecast(req.Horizon, 5)
			res.ConfidenceIntervals["lower"] = []float64{1}
			return res, nil
		}},
		{"no result", func(forecaster.Request) (*domain.ForecastResult, error) {
			return nil, nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{forecastFn: tt.fn}
			engine.trained.Store(true)
			runs := &fakeRuns{}
			g := NewGateway(engine, forecast.NewFallback(zeroNoise{}), nil, runs, GatewayConfig{EngineConfigured: true})

			resp, err := g.Predict(context.Background(), request("rice", 3, 1, 2, 3))
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, domain.ErrForecaster)
			assert.Empty(t, runs.forecasts)
		})
	}
}

func TestGatewayForecastIfTrained(t *testing.T) {
	engine := &fakeEngine{}
	g := NewGateway(engine, nil, nil, nil, GatewayConfig{EngineConfigured: true})

	_, ok, err := g.ForecastIfTrained(context.Background(), "rice", points(1, 2), 7)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, engine.trainCalls.Load())

	engine.trained.Store(true)
	result, ok, err := g.ForecastIfTrained(context.Background(), "rice", points(1, 2), 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, result.Predictions, 7)
}

func TestGatewayReset(t *testing.T) {
	engine := &fakeEngine{}
	engine.trained.Store(true)
	g := NewGateway(engine, nil, nil, nil, GatewayConfig{EngineConfigured: true})
	require.Equal(t, "trained", g.State())

	require.NoError(t, g.Reset(context.Background()))
	assert.Equal(t, "untrained", g.State())
	assert.EqualValues(t, 1, engine.resets.Load())

	_, err := g.Predict(context.Background(), request("rice", 2, 1, 2))
	require.NoError(t, err)
	assert.EqualValues(t, 1, engine.trainCalls.Load())
}

func TestGatewayResetEngineWithoutReset(t *testing.T) {
	engine := &fakeEngine{}
	engine.trained.Store(true)
	g := NewGateway(fixedEngine{engine}, nil, nil, nil, GatewayConfig{EngineConfigured: true})

	assert.ErrorIs(t, g.Reset(context.Background()), domain.ErrNotSupported)
	assert.Equal(t, "trained", g.State())
	assert.True(t, engine.trained.Load())
}

func TestGatewayResetWithoutEngine(t *testing.T) {
	g := NewGateway(nil, nil, nil, nil, GatewayConfig{})
	assert.ErrorIs(t, g.Reset(context.Background()), domain.ErrModelUnavailable)
}

func TestGatewayHistory(t *testing.T) {
	runs := &fakeRuns{}
	g := NewGateway(nil, forecast.NewFallback(zeroNoise{}), nil, runs, GatewayConfig{})

	for i := 0; i < 3; i++ {
		_, err := g.Predict(context.Background(), request("rice", 2, 1, 2))
		require.NoError(t, err)
	}
	_, err := g.Predict(context.Background(), request("beans", 2, 1, 2))
	require.NoError(t, err)

	history, err := g.History(context.Background(), "rice", 2)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	_, err = g.History(context.Background(), "rice", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	_, err = g.History(context.Background(), "rice", 101)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	_, err = g.History(context.Background(), "", 10)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestGatewayHealth(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	// configured but the engine could not be reached
	g := NewGateway(nil, nil, nil, nil, GatewayConfig{EngineConfigured: true})
	g.now = func() time.Time { return fixed }
	h := g.Health()
	assert.Equal(t, "healthy", h.Status)
	assert.True(t, h.MLModelAvailable)
	assert.False(t, h.ForecasterInitialized)
	assert.Equal(t, domain.StateUnavailable, h.ForecasterState)
	assert.Equal(t, fixed, h.Timestamp)

	g = NewGateway(&fakeEngine{}, nil, nil, nil, GatewayConfig{EngineConfigured: true})
	h = g.Health()
	assert.True(t, h.ForecasterInitialized)
	assert.Equal(t, "untrained", h.ForecasterState)
}

func TestGatewayCloseClosesEngine(t *testing.T) {
	engine := &fakeEngine{}
	g := NewGateway(engine, nil, nil, nil, GatewayConfig{})
	require.NoError(t, g.Close())
	assert.True(t, engine.closed.Load())
}
