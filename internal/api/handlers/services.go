package handlers

import (
	"context"

	"github.com/szlkpr/ims-ml-service/internal/domain"
)

// ForecastService is implemented by service.Gateway.
type ForecastService interface {
	Predict(ctx context.Context, req domain.ForecastRequest) (*domain.PredictionResponse, error)
	History(ctx context.Context, product string, limit int) ([]domain.ForecastRun, error)
	Reset(ctx context.Context) error
	State() string
	Health() domain.HealthStatus
}

type InventoryService interface {
	Optimize(ctx context.Context, req domain.OptimizationRequest) (*domain.OptimizationResponse, error)
}

type MarketService interface {
	AnalyzeStability(ctx context.Context, req domain.MarketAnalysisRequest) (*domain.MarketAnalysis, error)
	KnowledgeInsights(ctx context.Context, product string) (*domain.KnowledgeInsights, error)
}

type ExplainService interface {
	Explain(ctx context.Context, req domain.ExplanationRequest) (*domain.ExplanationResponse, error)
}
