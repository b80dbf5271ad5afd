package repository

import (
	"context"

	"github.com/szlkpr/ims-ml-service/internal/domain"
)

// RunRepository records forecast and optimization runs for audit and history.
type RunRepository interface {
	SaveForecastRun(ctx context.Context, run *domain.ForecastRun) error
	ListForecastRuns(ctx context.Context, product string, limit int) ([]domain.ForecastRun, error)
	SaveOptimizationRun(ctx context.Context, run *domain.OptimizationRun, decisions map[string]domain.InventoryDecision) error
}

type noopRunRepository struct{}

// NewNoopRunRepository is used when no database is configured.
func NewNoopRunRepository() RunRepository {
	return noopRunRepository{}
}

func (noopRunRepository) SaveForecastRun(ctx context.Context, run *domain.ForecastRun) error {
	return nil
}

func (noopRunRepository) ListForecastRuns(ctx context.Context, product string, limit int) ([]domain.ForecastRun, error) {
	return []domain.ForecastRun{}, nil
}

func (noopRunRepository) SaveOptimizationRun(ctx context.Context, run *domain.OptimizationRun, decisions map[string]domain.InventoryDecision) error {
	return nil
}
