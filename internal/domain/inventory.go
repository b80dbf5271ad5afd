package domain

import (
	"fmt"
	"time"
)

// OptimizationGoal selects the days-of-supply multiplier. Unknown goals are legal.
type OptimizationGoal string

const (
	GoalMinimizeCost         OptimizationGoal = "minimize_cost"
	GoalMaximizeAvailability OptimizationGoal = "maximize_availability"

	DefaultOptimizationGoal = GoalMinimizeCost
)

type RiskLevel string

const (
	RiskHigh RiskLevel = "high"
	RiskLow  RiskLevel = "low"
)

// Defaults applied to omitted product fields.
const (
	DefaultCurrentStock = 0.0
	DefaultReorderPoint = 10.0
	DefaultMaxStock     = 100.0
	DefaultAvgDemand    = 10.0
)

// ProductStock is the per-product payload of an optimization request.
// Pointer fields distinguish "omitted" from an explicit zero.
type ProductStock struct {
	CurrentStock   *float64          `json:"current_stock,omitempty"`
	ReorderPoint   *float64          `json:"reorder_point,omitempty"`
	MaxStock       *float64          `json:"max_stock,omitempty"`
	AvgDemand      *float64          `json:"avg_demand,omitempty"`
	HistoricalData []HistoricalPoint `json:"historical_data,omitempty"`
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// Resolve applies defaults and checks that every quantity is non-negative.
// PredictedDemand is left at the caller's avg_demand (or its default).
func (p ProductStock) Resolve() (InventoryInput, error) {
	in := InventoryInput{
		CurrentStock:    valueOr(p.CurrentStock, DefaultCurrentStock),
		ReorderPoint:    valueOr(p.ReorderPoint, DefaultReorderPoint),
		MaxStock:        valueOr(p.MaxStock, DefaultMaxStock),
		PredictedDemand: valueOr(p.AvgDemand, DefaultAvgDemand),
	}
	fields := []struct {
		name  string
		value float64
	}{
		{"current_stock", in.CurrentStock},
		{"reorder_point", in.ReorderPoint},
		{"max_stock", in.MaxStock},
		{"avg_demand", in.PredictedDemand},
	}
	for _, f := range fields {
		if f.value < 0 {
			return InventoryInput{}, fmt.Errorf("%w: %s must be non-negative", ErrInvalidRequest, f.name)
		}
	}
	return in, nil
}

// InventoryInput is what the optimizer consumes for one product.
type InventoryInput struct {
	CurrentStock    float64 `json:"current_stock"`
	ReorderPoint    float64 `json:"reorder_point"`
	MaxStock        float64 `json:"max_stock"`
	PredictedDemand float64 `json:"predicted_demand"`
}

// InventoryDecision is the optimizer output for one product.
type InventoryDecision struct {
	CurrentStock     float64   `json:"current_stock"`
	PredictedDemand  float64   `json:"predicted_demand"`
	RecommendedStock float64   `json:"recommended_stock"`
	ReorderNeeded    bool      `json:"reorder_needed"`
	ReorderQuantity  float64   `json:"reorder_quantity"`
	RiskLevel        RiskLevel `json:"risk_level"`
}

type OptimizationSummary struct {
	TotalProducts          int     `json:"total_products"`
	ReorderNeeded          int     `json:"reorder_needed"`
	HighRiskProducts       int     `json:"high_risk_products"`
	OptimizationEfficiency float64 `json:"optimization_efficiency"`
}

type OptimizationRequest struct {
	ProductData      map[string]ProductStock `json:"product_data"`
	OptimizationGoal OptimizationGoal        `json:"optimization_goal"`
}

type OptimizationResponse struct {
	Success           bool                         `json:"success"`
	OptimizationGoal  OptimizationGoal             `json:"optimization_goal"`
	ProductsOptimized int                          `json:"products_optimized"`
	Results           map[string]InventoryDecision `json:"results"`
	Summary           OptimizationSummary          `json:"summary"`
	ReportKey         string                       `json:"report_key,omitempty"`
}

// ReorderEvent is published for every product whose decision requires a reorder.
type ReorderEvent struct {
	Product          string           `json:"product"`
	Goal             OptimizationGoal `json:"goal"`
	CurrentStock     float64          `json:"current_stock"`
	RecommendedStock float64          `json:"recommended_stock"`
	ReorderQuantity  float64          `json:"reorder_quantity"`
	RiskLevel        RiskLevel        `json:"risk_level"`
	OccurredAt       time.Time        `json:"occurred_at"`
}

// OptimizationRun is the audit record of one optimization request.
type OptimizationRun struct {
	ID                     int64            `json:"id" db:"id"`
	Goal                   OptimizationGoal `json:"goal" db:"goal"`
	TotalProducts          int              `json:"total_products" db:"total_products"`
	ReorderNeeded          int              `json:"reorder_needed" db:"reorder_needed"`
	HighRiskProducts       int              `json:"high_risk_products" db:"high_risk_products"`
	OptimizationEfficiency float64          `json:"optimization_efficiency" db:"optimization_efficiency"`
	CreatedAt              time.Time        `json:"created_at" db:"created_at"`
}
