package service

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/szlkpr/ims-ml-service/internal/cache"
	"github.com/szlkpr/ims-ml-service/internal/domain"
	"github.com/szlkpr/ims-ml-service/internal/forecast"
	"github.com/szlkpr/ims-ml-service/internal/forecaster"
	"github.com/szlkpr/ims-ml-service/internal/repository"
)

const (
	defaultTrainEpochs = 50
	trainFlightKey     = "train"
)

type GatewayConfig struct {
	// EngineConfigured reports whether an engine endpoint was configured,
	// independent of whether connecting to it succeeded.
	EngineConfigured bool
	TrainEpochs      int
	MaxHorizon       int
}

// Gateway dispatches forecasts to the engine when one exists and to the
// trend fallback otherwise. Engine failures are never masked by the fallback.
//
// Training happens inline on first use. Concurrent callers share one
// training run, and forecasts hold the read side of mu so they never run
// while the engine is being trained or reset.
type Gateway struct {
	engine   forecaster.Forecaster
	fallback *forecast.Fallback
	cache    cache.ForecastCache
	runs     repository.RunRepository
	cfg      GatewayConfig

	mu     sync.RWMutex
	state  atomic.Int32
	flight singleflight.Group
	now    func() time.Time
}

// NewGateway accepts a nil engine, which leaves the gateway unavailable.
func NewGateway(engine forecaster.Forecaster, fallback *forecast.Fallback, cacheImpl cache.ForecastCache, runs repository.RunRepository, cfg GatewayConfig) *Gateway {
	if fallback == nil {
		fallback = forecast.NewFallback(nil)
	}
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopForecastCache()
	}
	if runs == nil {
		runs = repository.NewNoopRunRepository()
	}
	if cfg.TrainEpochs <= 0 {
		cfg.TrainEpochs = defaultTrainEpochs
	}

	g := &Gateway{
		engine:   engine,
		fallback: fallback,
		cache:    cacheImpl,
		runs:     runs,
		cfg:      cfg,
		now:      time.Now,
	}
	if engine != nil && engine.Trained() {
		g.state.Store(int32(domain.StateTrained))
	}
	return g
}

// Available reports whether an engine instance exists.
func (g *Gateway) Available() bool {
	return g.engine != nil
}

// Trained reports whether an engine exists and is trained.
func (g *Gateway) Trained() bool {
	return g.engine != nil && g.engine.Trained()
}

// State is "unavailable" or the engine's training state.
func (g *Gateway) State() string {
	if g.engine == nil {
		return domain.StateUnavailable
	}
	s := domain.TrainingState(g.state.Load())
	if s == domain.StateUntrained && g.engine.Trained() {
		s = domain.StateTrained
	}
	return s.String()
}

func (g *Gateway) Health() domain.HealthStatus {
	return domain.HealthStatus{
		Status:                "healthy",
		MLModelAvailable:      g.cfg.EngineConfigured,
		ForecasterInitialized: g.engine != nil,
		ForecasterState:       g.State(),
		Timestamp:             g.now(),
	}
}

// Predict validates req and returns a forecast from the engine or the fallback.
func (g *Gateway) Predict(ctx context.Context, req domain.ForecastRequest) (*domain.PredictionResponse, error) {
	if err := req.Validate(g.cfg.MaxHorizon); err != nil {
		return nil, err
	}

	var (
		result *domain.ForecastResult
		source domain.ForecastSource
		err    error
	)
	if g.engine == nil {
		source = domain.SourceFallback
		result, err = g.fallback.Forecast(req.ProductName, req.HistoricalData, req.ForecastHorizon)
	} else {
		source = domain.SourceEngine
		result, err = g.predictWithEngine(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	g.record(ctx, req, source, result)

	return &domain.PredictionResponse{
		Success:        true,
		ProductName:    req.ProductName,
		Source:         source,
		ForecastResult: *result,
	}, nil
}

func (g *Gateway) predictWithEngine(ctx context.Context, req domain.ForecastRequest) (*domain.ForecastResult, error) {
	if cached, ok, err := g.cache.Get(ctx, req); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Warn().Err(err).Str("product", req.ProductName).Msg("gateway: cache get failed")
	}

	if err := g.ensureTrained(ctx, map[string][]domain.HistoricalPoint{req.ProductName: req.HistoricalData}); err != nil {
		return nil, err
	}

	result, err := g.engineForecast(ctx, forecaster.Request{
		Product:           req.ProductName,
		History:           req.HistoricalData,
		Horizon:           req.ForecastHorizon,
		GenerateScenarios: req.IncludeScenarios,
	})
	if err != nil {
		return nil, err
	}

	if err := g.cache.Set(ctx, req, result); err != nil {
		log.Warn().Err(err).Str("product", req.ProductName).Msg("gateway: cache set failed")
	}
	return result, nil
}

// ForecastIfTrained forecasts with the engine only when it is already
// trained. ok is false when the caller should use its own estimate.
func (g *Gateway) ForecastIfTrained(ctx context.Context, product string, history []domain.HistoricalPoint, horizon int) (*domain.ForecastResult, bool, error) {
	if g.engine == nil || !g.engine.Trained() {
		return nil, false, nil
	}
	result, err := g.engineForecast(ctx, forecaster.Request{
		Product: product,
		History: history,
		Horizon: horizon,
	})
	if err != nil {
		return nil, false, err
	}
	return result, true, nil
}

func (g *Gateway) engineForecast(ctx context.Context, req forecaster.Request) (*domain.ForecastResult, error) {
	g.mu.RLock()
	result, err := g.engine.Forecast(ctx, req)
	g.mu.RUnlock()

	if err == nil {
		err = checkEngineResult(result, req.Horizon)
	}
	if err != nil {
		log.Error().Err(err).Str("product", req.Product).Int("horizon", req.Horizon).Msg("gateway: engine forecast failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrForecaster, err)
	}
	return result, nil
}

// ensureTrained runs at most one training at a time. Waiters share the
// outcome of the in-flight run; a failed run leaves the engine untrained so
// the next request retries.
func (g *Gateway) ensureTrained(ctx context.Context, data map[string][]domain.HistoricalPoint) error {
	if g.engine.Trained() {
		g.state.Store(int32(domain.StateTrained))
		return nil
	}

	// training outlives a single caller hanging up
	trainCtx := context.WithoutCancel(ctx)

	_, err, shared := g.flight.Do(trainFlightKey, func() (any, error) {
		g.mu.Lock()
		defer g.mu.Unlock()

		if g.engine.Trained() {
			g.state.Store(int32(domain.StateTrained))
			return nil, nil
		}

		g.state.Store(int32(domain.StateTraining))
		start := g.now()
		log.Info().Int("epochs", g.cfg.TrainEpochs).Int("products", len(data)).Msg("gateway: training forecaster")

		if err := g.engine.Train(trainCtx, data, g.cfg.TrainEpochs); err != nil {
			g.state.Store(int32(domain.StateUntrained))
			return nil, err
		}

		g.state.Store(int32(domain.StateTrained))
		log.Info().Dur("took", g.now().Sub(start)).Msg("gateway: forecaster trained")
		return nil, nil
	})
	if err != nil {
		log.Error().Err(err).Bool("shared", shared).Msg("gateway: training failed")
		return fmt.Errorf("%w: training: %w", domain.ErrForecaster, err)
	}
	return nil
}

func checkEngineResult(result *domain.ForecastResult, horizon int) error {
	if result == nil {
		return fmt.Errorf("engine returned no result")
	}
	if len(result.Predictions) != horizon {
		return fmt.Errorf("engine returned %d predictions for horizon %d", len(result.Predictions), horizon)
	}
	for name, band := range result.ConfidenceIntervals {
		if len(band) != horizon {
			return fmt.Errorf("engine band %q has %d values for horizon %d", name, len(band), horizon)
		}
	}
	for _, p := range result.Predictions {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("engine returned a non-finite prediction")
		}
	}
	if result.Explanations == nil {
		result.Explanations = map[string]any{}
	}
	if result.Recommendations == nil {
		result.Recommendations = []string{}
	}
	return nil
}

func (g *Gateway) record(ctx context.Context, req domain.ForecastRequest, source domain.ForecastSource, result *domain.ForecastResult) {
	run := &domain.ForecastRun{
		ProductName:    req.ProductName,
		Source:         source,
		Horizon:        req.ForecastHorizon,
		Predictions:    result.Predictions,
		CertaintyScore: result.CertaintyScore,
	}
	if err := g.runs.SaveForecastRun(ctx, run); err != nil {
		log.Warn().Err(err).Str("product", req.ProductName).Msg("gateway: failed to record forecast run")
	}
}

// History lists the most recent recorded forecasts of product.
func (g *Gateway) History(ctx context.Context, product string, limit int) ([]domain.ForecastRun, error) {
	if product == "" {
		return nil, fmt.Errorf("%w: product is required", domain.ErrInvalidRequest)
	}
	if limit <= 0 || limit > 100 {
		return nil, fmt.Errorf("%w: limit must be between 1 and 100", domain.ErrInvalidRequest)
	}
	return g.runs.ListForecastRuns(ctx, product, limit)
}

// Reset drops the trained state so the next forecast retrains. Engines that
// cannot forget their training are left alone and ErrNotSupported is returned.
func (g *Gateway) Reset(ctx context.Context) error {
	if g.engine == nil {
		return domain.ErrModelUnavailable
	}
	r, ok := g.engine.(forecaster.Resetter)
	if !ok {
		return fmt.Errorf("%w: reset", domain.ErrNotSupported)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := r.Reset(ctx); err != nil {
		log.Error().Err(err).Msg("gateway: engine reset failed")
		return fmt.Errorf("%w: reset: %w", domain.ErrForecaster, err)
	}
	g.state.Store(int32(domain.StateUntrained))

	if err := g.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("gateway: cache invalidation failed")
	}
	log.Info().Msg("gateway: forecaster reset")
	return nil
}

// KnowledgeGraph returns the engine's graph when it exposes one.
func (g *Gateway) KnowledgeGraph() (forecaster.KnowledgeGraph, bool) {
	kg, ok := g.engine.(forecaster.KnowledgeGraph)
	return kg, ok
}

// Reasoner returns the engine's reasoner when it exposes one.
func (g *Gateway) Reasoner() (forecaster.Reasoner, bool) {
	r, ok := g.engine.(forecaster.Reasoner)
	return r, ok
}

// Fallback exposes the trend pipeline, which also owns the random source.
func (g *Gateway) Fallback() *forecast.Fallback {
	return g.fallback
}

func (g *Gateway) Close() error {
	var firstErr error
	if c, ok := g.engine.(io.Closer); ok {
		firstErr = c.Close()
	}
	if err := g.cache.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
