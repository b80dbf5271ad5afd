package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"

	"github.com/szlkpr/ims-ml-service/internal/domain"
	"github.com/szlkpr/ims-ml-service/internal/repository"
)

const schema = `
CREATE TABLE IF NOT EXISTS forecast_runs (
	id              BIGSERIAL PRIMARY KEY,
	product_name    TEXT NOT NULL,
	source          TEXT NOT NULL,
	horizon         INTEGER NOT NULL,
	predictions     JSONB NOT NULL,
	certainty_score DOUBLE PRECISION NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_forecast_runs_product_created ON forecast_runs (product_name, created_at DESC);

CREATE TABLE IF NOT EXISTS optimization_runs (
	id                      BIGSERIAL PRIMARY KEY,
	goal                    TEXT NOT NULL,
	total_products          INTEGER NOT NULL,
	reorder_needed          INTEGER NOT NULL,
	high_risk_products      INTEGER NOT NULL,
	optimization_efficiency DOUBLE PRECISION NOT NULL,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS optimization_decisions (
	run_id            BIGINT NOT NULL REFERENCES optimization_runs(id) ON DELETE CASCADE,
	product_name      TEXT NOT NULL,
	current_stock     DOUBLE PRECISION NOT NULL,
	predicted_demand  DOUBLE PRECISION NOT NULL,
	recommended_stock DOUBLE PRECISION NOT NULL,
	reorder_needed    BOOLEAN NOT NULL,
	reorder_quantity  DOUBLE PRECISION NOT NULL,
	risk_level        TEXT NOT NULL,
	PRIMARY KEY (run_id, product_name)
);
`

type runRepository struct {
	db *DB
}

var _ repository.RunRepository = (*runRepository)(nil)

func NewRunRepository(db *DB) *runRepository {
	return &runRepository{db: db}
}

// EnsureSchema creates the run tables when missing.
func (r *runRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure run schema: %w", err)
	}
	return nil
}

type forecastRunRow struct {
	ID             int64          `db:"id"`
	ProductName    string         `db:"product_name"`
	Source         string         `db:"source"`
	Horizon        int            `db:"horizon"`
	Predictions    types.JSONText `db:"predictions"`
	CertaintyScore float64        `db:"certainty_score"`
	CreatedAt      time.Time      `db:"created_at"`
}

func (r *runRepository) SaveForecastRun(ctx context.Context, run *domain.ForecastRun) error {
	predictions, err := json.Marshal(run.Predictions)
	if err != nil {
		return fmt.Errorf("failed to encode predictions: %w", err)
	}

	query := `
		INSERT INTO forecast_runs (product_name, source, horizon, predictions, certainty_score)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	row := r.db.QueryRowxContext(ctx, query, run.ProductName, string(run.Source), run.Horizon, string(predictions), run.CertaintyScore)
	if err := row.Scan(&run.ID, &run.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert forecast run: %w", err)
	}
	return nil
}

func (r *runRepository) ListForecastRuns(ctx context.Context, product string, limit int) ([]domain.ForecastRun, error) {
	query := `
		SELECT id, product_name, source, horizon, predictions, certainty_score, created_at
		FROM forecast_runs
		WHERE product_name = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	var rows []forecastRunRow
	if err := r.db.SelectContext(ctx, &rows, query, product, limit); err != nil {
		return nil, fmt.Errorf("failed to list forecast runs: %w", err)
	}

	runs := make([]domain.ForecastRun, 0, len(rows))
	for _, row := range rows {
		run := domain.ForecastRun{
			ID:             row.ID,
			ProductName:    row.ProductName,
			Source:         domain.ForecastSource(row.Source),
			Horizon:        row.Horizon,
			CertaintyScore: row.CertaintyScore,
			CreatedAt:      row.CreatedAt,
		}
		if err := row.Predictions.Unmarshal(&run.Predictions); err != nil {
			return nil, fmt.Errorf("failed to decode predictions of run %d: %w", row.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (r *runRepository) SaveOptimizationRun(ctx context.Context, run *domain.OptimizationRun, decisions map[string]domain.InventoryDecision) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		// 1. Run header
		err := tx.QueryRowContext(ctx, `
			INSERT INTO optimization_runs (goal, total_products, reorder_needed, high_risk_products, optimization_efficiency)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at
		`, string(run.Goal), run.TotalProducts, run.ReorderNeeded, run.HighRiskProducts, run.OptimizationEfficiency).
			Scan(&run.ID, &run.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert optimization run: %w", err)
		}

		// 2. Per-product decisions
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO optimization_decisions (
				run_id, product_name, current_stock, predicted_demand,
				recommended_stock, reorder_needed, reorder_quantity, risk_level
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for product, d := range decisions {
			if _, err := stmt.ExecContext(ctx, run.ID, product, d.CurrentStock, d.PredictedDemand,
				d.RecommendedStock, d.ReorderNeeded, d.ReorderQuantity, string(d.RiskLevel)); err != nil {
				return fmt.Errorf("failed to insert decision for %s: %w", product, err)
			}
		}
		return nil
	})
}
