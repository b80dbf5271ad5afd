// Package forecast implements the trend-based fallback forecaster used
// whenever the remote engine is not configured.
package forecast

import (
	"fmt"
	"time"

	"github.com/szlkpr/ims-ml-service/internal/domain"
)

const fallbackNote = "Mock prediction - ML model not loaded"

// Fallback chains trend extrapolation, the ±10% band and the narrative.
type Fallback struct {
	rng RandSource
}

func NewFallback(rng RandSource) *Fallback {
	if rng == nil {
		rng = NewRandSource(0)
	}
	return &Fallback{rng: rng}
}

// Forecast is all-or-nothing: any error leaves no partial result.
func (f *Fallback) Forecast(product string, history []domain.HistoricalPoint, horizon int) (*domain.ForecastResult, error) {
	predictions, slope, err := Extrapolate(domain.Values(history), horizon, f.rng)
	if err != nil {
		return nil, fmt.Errorf("fallback forecast for %s: %w", product, err)
	}

	n := Narrate(product, slope, horizon)
	return &domain.ForecastResult{
		Predictions:         predictions,
		ConfidenceIntervals: Intervals(predictions),
		CertaintyScore:      n.CertaintyScore,
		Explanations: map[string]any{
			"method": "trend_based",
			"trend":  slope,
			"note":   fallbackNote,
		},
		Recommendations: n.Recommendations,
		Narrative:       n.Text,
	}, nil
}

// SyntheticHistory draws a daily N(mean, stddev) series of n points starting at start.
func (f *Fallback) SyntheticHistory(n int, mean, stddev float64, start time.Time) []domain.HistoricalPoint {
	points := make([]domain.HistoricalPoint, n)
	for i := range points {
		points[i] = domain.HistoricalPoint{
			Date:  start.AddDate(0, 0, i).Format("2006-01-02"),
			Value: normal(f.rng, mean, stddev),
		}
	}
	return points
}
