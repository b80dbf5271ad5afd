package inventory

import "github.com/szlkpr/ims-ml-service/internal/domain"

// Summarize aggregates per-product decisions. Efficiency is the share of
// products that are not high risk, 0 for an empty set.
func Summarize(results map[string]domain.InventoryDecision) domain.OptimizationSummary {
	summary := domain.OptimizationSummary{TotalProducts: len(results)}
	for _, r := range results {
		if r.ReorderNeeded {
			summary.ReorderNeeded++
		}
		if r.RiskLevel == domain.RiskHigh {
			summary.HighRiskProducts++
		}
	}

	if summary.TotalProducts > 0 {
		summary.OptimizationEfficiency = float64(summary.TotalProducts-summary.HighRiskProducts) / float64(summary.TotalProducts)
	}
	return summary
}
