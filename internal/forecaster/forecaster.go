// Package forecaster defines what the service needs from the ML engine and
// provides an HTTP client for an engine deployed as a separate process.
package forecaster

import (
	"context"

	"github.com/szlkpr/ims-ml-service/internal/domain"
)

// Request is a single-product forecast call.
type Request struct {
	Product           string                   `json:"product"`
	History           []domain.HistoricalPoint `json:"historical_data"`
	Horizon           int                      `json:"forecast_horizon"`
	GenerateScenarios bool                     `json:"generate_scenarios"`
}

// Forecaster is the engine contract. Train may be slow; Forecast may fail.
type Forecaster interface {
	Trained() bool
	Train(ctx context.Context, data map[string][]domain.HistoricalPoint, epochs int) error
	Forecast(ctx context.Context, req Request) (*domain.ForecastResult, error)
}

// KnowledgeGraph is implemented by engines that expose their market graph.
type KnowledgeGraph interface {
	RelatedEntities(ctx context.Context, product string, maxHops int) ([]domain.RelatedEntity, error)
	SymbolicRules(ctx context.Context, product string) ([]string, error)
	Summary(ctx context.Context) (map[string]any, error)
	TemporalImpact(ctx context.Context, entity, product string, daysOffset int) (float64, error)
}

// Reasoner is implemented by engines that can explain a prediction.
type Reasoner interface {
	Explain(ctx context.Context, q domain.ReasoningQuery) (*domain.Reasoning, error)
}

// Resetter drops trained state so the next request retrains.
type Resetter interface {
	Reset(ctx context.Context) error
}
