package inventory

import (
	"math"

	"github.com/szlkpr/ims-ml-service/internal/domain"
)

// Days of supply held per goal.
const (
	minimizeCostDays         = 7
	maximizeAvailabilityDays = 14
	defaultDays              = 10

	// riskCoverDays is the stock cover below which a product is high risk.
	riskCoverDays = 3
)

// Optimizer turns predicted demand into a recommended stock level.
type Optimizer struct{}

func NewOptimizer() *Optimizer {
	return &Optimizer{}
}

// DaysOfSupply returns the multiplier for goal and whether max_stock caps it.
// Unknown goals get 10 days with no cap.
func DaysOfSupply(goal domain.OptimizationGoal) (days float64, capped bool) {
	switch goal {
	case domain.GoalMinimizeCost:
		return minimizeCostDays, true
	case domain.GoalMaximizeAvailability:
		return maximizeAvailabilityDays, true
	default:
		return defaultDays, false
	}
}

// Optimize computes the decision for a single product.
func (o *Optimizer) Optimize(in domain.InventoryInput, goal domain.OptimizationGoal) domain.InventoryDecision {
	// 1. Recommended stock = predicted demand × days of supply
	days, capped := DaysOfSupply(goal)
	recommended := in.PredictedDemand * days
	if capped {
		recommended = math.Min(recommended, in.MaxStock)
	}

	// 2. Risk when stock covers less than three days of demand
	risk := domain.RiskLow
	if in.CurrentStock < in.PredictedDemand*riskCoverDays {
		risk = domain.RiskHigh
	}

	return domain.InventoryDecision{
		CurrentStock:     in.CurrentStock,
		PredictedDemand:  in.PredictedDemand,
		RecommendedStock: recommended,
		ReorderNeeded:    in.CurrentStock < recommended,
		ReorderQuantity:  math.Max(0, recommended-in.CurrentStock),
		RiskLevel:        risk,
	}
}
