package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/szlkpr/ims-ml-service/internal/domain"
	"github.com/szlkpr/ims-ml-service/internal/forecaster"
	"github.com/szlkpr/ims-ml-service/internal/storage"
)

type zeroNoise struct{}

func (zeroNoise) NormFloat64() float64 { return 0 }

func points(values ...float64) []domain.HistoricalPoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.HistoricalPoint, len(values))
	for i, v := range values {
		out[i] = domain.HistoricalPoint{Date: start.AddDate(0, 0, i).Format("2006-01-02"), Value: v}
	}
	return out
}

// fakeEngine is a scriptable engine. Predictions default to a constant
// level of 20 unless forecastFn is set.
type fakeEngine struct {
	trained    atomic.Bool
	trainCalls atomic.Int32
	fcCalls    atomic.Int32
	resets     atomic.Int32
	closed     atomic.Bool

	trainDelay time.Duration
	trainErr   error
	forecastFn func(req forecaster.Request) (*domain.ForecastResult, error)

	mu       sync.Mutex
	requests []forecaster.Request
}

func (e *fakeEngine) Trained() bool { return e.trained.Load() }

func (e *fakeEngine) Train(ctx context.Context, data map[string][]domain.HistoricalPoint, epochs int) error {
	e.trainCalls.Add(1)
	if e.trainDelay > 0 {
		time.Sleep(e.trainDelay)
	}
	if e.trainErr != nil {
		return e.trainErr
	}
	e.trained.Store(true)
	return nil
}

func (e *fakeEngine) Forecast(ctx context.Context, req forecaster.Request) (*domain.ForecastResult, error) {
	e.fcCalls.Add(1)
	e.mu.Lock()
	e.requests = append(e.requests, req)
	e.mu.Unlock()

	if e.forecastFn != nil {
		return e.forecastFn(req)
	}
	return constantForecast(req.Horizon, 20), nil
}

func (e *fakeEngine) Reset(ctx context.Context) error {
	e.resets.Add(1)
	e.trained.Store(false)
	return nil
}

func (e *fakeEngine) Close() error {
	e.closed.Store(true)
	return nil
}

// fixedEngine hides fakeEngine's Reset, like an engine that cannot forget its training.
type fixedEngine struct {
	forecaster.Forecaster
}

func (e *fakeEngine) lastRequest() forecaster.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requests[len(e.requests)-1]
}

func constantForecast(horizon int, level float64) *domain.ForecastResult {
	preds := make([]float64, horizon)
	lower := make([]float64, horizon)
	upper := make([]float64, horizon)
	for i := range preds {
		preds[i] = level
		lower[i] = level - 1
		upper[i] = level + 1
	}
	return &domain.ForecastResult{
		Predictions:         preds,
		ConfidenceIntervals: map[string][]float64{"lower": lower, "upper": upper},
		CertaintyScore:      0.9,
		Narrative:           "steady",
	}
}

// graphEngine adds the knowledge graph and reasoner capabilities.
type graphEngine struct {
	fakeEngine

	related  map[string][]domain.RelatedEntity
	rules    map[string][]string
	impacts  map[string]float64
	graphErr error

	reasoning *domain.Reasoning
	lastQuery domain.ReasoningQuery
}

func (g *graphEngine) RelatedEntities(ctx context.Context, product string, maxHops int) ([]domain.RelatedEntity, error) {
	if g.graphErr != nil {
		return nil, g.graphErr
	}
	return g.related[product], nil
}

func (g *graphEngine) SymbolicRules(ctx context.Context, product string) ([]string, error) {
	return g.rules[product], nil
}

func (g *graphEngine) Summary(ctx context.Context) (map[string]any, error) {
	return map[string]any{"entities": 12, "relations": 30}, nil
}

func (g *graphEngine) TemporalImpact(ctx context.Context, entity, product string, daysOffset int) (float64, error) {
	if daysOffset < 0 {
		return 0, nil
	}
	return g.impacts[entity], nil
}

func (g *graphEngine) Explain(ctx context.Context, q domain.ReasoningQuery) (*domain.Reasoning, error) {
	g.lastQuery = q
	if g.reasoning == nil {
		return nil, errors.New("reasoner offline")
	}
	return g.reasoning, nil
}

type fakeRuns struct {
	mu            sync.Mutex
	forecasts     []domain.ForecastRun
	optimizations []domain.OptimizationRun
	decisions     map[string]domain.InventoryDecision
}

func (r *fakeRuns) SaveForecastRun(ctx context.Context, run *domain.ForecastRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forecasts = append(r.forecasts, *run)
	return nil
}

func (r *fakeRuns) ListForecastRuns(ctx context.Context, product string, limit int) ([]domain.ForecastRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ForecastRun
	for i := len(r.forecasts) - 1; i >= 0 && len(out) < limit; i-- {
		if r.forecasts[i].ProductName == product {
			out = append(out, r.forecasts[i])
		}
	}
	return out, nil
}

func (r *fakeRuns) SaveOptimizationRun(ctx context.Context, run *domain.OptimizationRun, decisions map[string]domain.InventoryDecision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.optimizations = append(r.optimizations, *run)
	r.decisions = decisions
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.ReorderEvent
}

func (p *fakePublisher) PublishReorder(ctx context.Context, ev domain.ReorderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) Close() {}

type fakeArchive struct {
	objects map[string][]byte
}

func (a *fakeArchive) ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	return nil, nil
}

func (a *fakeArchive) DownloadObject(ctx context.Context, key, destPath string) error {
	return nil
}

func (a *fakeArchive) UploadObject(ctx context.Context, key string, data []byte) error {
	if a.objects == nil {
		a.objects = map[string][]byte{}
	}
	a.objects[key] = data
	return nil
}
