// internal/domain/models.go
package domain

import (
	"fmt"
	"strings"
	"time"
)

// HistoricalPoint is one observation of a product series. Order is chronological.
type HistoricalPoint struct {
	Date     string   `json:"date"`
	Value    float64  `json:"value"`
	Quantity *int     `json:"quantity,omitempty"`
	Price    *float64 `json:"price,omitempty"`
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "2006/01/02"}

// Time parses Date with the layouts accepted on the wire.
func (p HistoricalPoint) Time() (time.Time, error) {
	raw := strings.TrimSpace(p.Date)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable date %q", ErrInvalidRequest, p.Date)
}

// EffectivePrice falls back to Value when no price was recorded.
func (p HistoricalPoint) EffectivePrice() float64 {
	if p.Price != nil {
		return *p.Price
	}
	return p.Value
}

// EffectiveQuantity defaults to 1 when no quantity was recorded.
func (p HistoricalPoint) EffectiveQuantity() int {
	if p.Quantity != nil {
		return *p.Quantity
	}
	return 1
}

// Values extracts the value column of a series.
func Values(points []HistoricalPoint) []float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return values
}

const (
	DefaultForecastHorizon  = 30
	DefaultIncludeScenarios = true
)

// ForecastRequest asks for a demand forecast of a single product.
type ForecastRequest struct {
	ProductName      string            `json:"product_name"`
	HistoricalData   []HistoricalPoint `json:"historical_data"`
	ForecastHorizon  int               `json:"forecast_horizon"`
	IncludeScenarios bool              `json:"include_scenarios"`
}

// NewForecastRequest returns a request carrying the wire defaults, ready to be decoded into.
func NewForecastRequest() ForecastRequest {
	return ForecastRequest{
		ForecastHorizon:  DefaultForecastHorizon,
		IncludeScenarios: DefaultIncludeScenarios,
	}
}

// Validate rejects malformed requests. maxHorizon <= 0 disables the upper bound.
func (r ForecastRequest) Validate(maxHorizon int) error {
	if strings.TrimSpace(r.ProductName) == "" {
		return fmt.Errorf("%w: product_name is required", ErrInvalidRequest)
	}
	if len(r.HistoricalData) == 0 {
		return fmt.Errorf("%w: historical_data must not be empty", ErrInsufficientData)
	}
	if r.ForecastHorizon <= 0 {
		return fmt.Errorf("%w: forecast_horizon must be positive", ErrInvalidRequest)
	}
	if maxHorizon > 0 && r.ForecastHorizon > maxHorizon {
		return fmt.Errorf("%w: forecast_horizon must not exceed %d", ErrInvalidRequest, maxHorizon)
	}
	for i, p := range r.HistoricalData {
		if _, err := p.Time(); err != nil {
			return fmt.Errorf("historical_data[%d]: %w", i, err)
		}
		if p.Quantity != nil && *p.Quantity < 0 {
			return fmt.Errorf("%w: historical_data[%d].quantity must be non-negative", ErrInvalidRequest, i)
		}
	}
	return nil
}

// ForecastResult is the shape shared by the fallback pipeline and the remote engine.
type ForecastResult struct {
	Predictions         []float64            `json:"predictions"`
	ConfidenceIntervals map[string][]float64 `json:"confidence_intervals"`
	CertaintyScore      float64              `json:"certainty_score"`
	Explanations        map[string]any       `json:"explanations"`
	Recommendations     []string             `json:"recommendations"`
	Narrative           string               `json:"narrative"`
}

// Mean of the predictions, 0 for an empty result.
func (r *ForecastResult) Mean() float64 {
	if r == nil || len(r.Predictions) == 0 {
		return 0
	}
	var sum float64
	for _, p := range r.Predictions {
		sum += p
	}
	return sum / float64(len(r.Predictions))
}

type ForecastSource string

const (
	SourceFallback ForecastSource = "fallback"
	SourceEngine   ForecastSource = "engine"
)

// PredictionResponse is the envelope returned by /predict/demand.
type PredictionResponse struct {
	Success     bool           `json:"success"`
	ProductName string         `json:"product_name"`
	Source      ForecastSource `json:"source"`
	ForecastResult
}

// ForecastRun is a recorded forecast, kept for audit and history queries.
type ForecastRun struct {
	ID             int64          `json:"id" db:"id"`
	ProductName    string         `json:"product_name" db:"product_name"`
	Source         ForecastSource `json:"source" db:"source"`
	Horizon        int            `json:"horizon" db:"horizon"`
	Predictions    []float64      `json:"predictions" db:"-"`
	CertaintyScore float64        `json:"certainty_score" db:"certainty_score"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// HealthStatus is returned by /health.
type HealthStatus struct {
	Status                string    `json:"status"`
	MLModelAvailable      bool      `json:"ml_model_available"`
	ForecasterInitialized bool      `json:"forecaster_initialized"`
	ForecasterState       string    `json:"forecaster_state"`
	Timestamp             time.Time `json:"timestamp"`
}
