package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForecastRequestDefaults(t *testing.T) {
	req := NewForecastRequest()
	require.NoError(t, json.Unmarshal([]byte(`{"product_name":"rice","historical_data":[{"date":"2024-01-01","value":3}]}`), &req))

	assert.Equal(t, 30, req.ForecastHorizon)
	assert.True(t, req.IncludeScenarios)

	req = NewForecastRequest()
	require.NoError(t, json.Unmarshal([]byte(`{"product_name":"rice","forecast_horizon":5,"include_scenarios":false}`), &req))
	assert.Equal(t, 5, req.ForecastHorizon)
	assert.False(t, req.IncludeScenarios)
}

func TestForecastRequestValidate(t *testing.T) {
	valid := ForecastRequest{
		ProductName:     "rice",
		HistoricalData:  []HistoricalPoint{{Date: "2024-01-01", Value: 1}, {Date: "2024-01-02T00:00:00Z", Value: 2}},
		ForecastHorizon: 7,
	}
	assert.NoError(t, valid.Validate(365))

	missingName := valid
	missingName.ProductName = " "
	assert.ErrorIs(t, missingName.Validate(365), ErrInvalidRequest)

	empty := valid
	empty.HistoricalData = nil
	assert.ErrorIs(t, empty.Validate(365), ErrInsufficientData)

	zeroHorizon := valid
	zeroHorizon.ForecastHorizon = 0
	assert.ErrorIs(t, zeroHorizon.Validate(365), ErrInvalidRequest)

	tooLong := valid
	tooLong.ForecastHorizon = 400
	assert.ErrorIs(t, tooLong.Validate(365), ErrInvalidRequest)
	assert.NoError(t, tooLong.Validate(0))

	badDate := valid
	badDate.HistoricalData = []HistoricalPoint{{Date: "yesterday", Value: 1}}
	assert.ErrorIs(t, badDate.Validate(365), ErrInvalidRequest)

	negative := -1
	badQty := valid
	badQty.HistoricalData = []HistoricalPoint{{Date: "2024-01-01", Value: 1, Quantity: &negative}}
	assert.ErrorIs(t, badQty.Validate(365), ErrInvalidRequest)
}

func TestProductStockResolve(t *testing.T) {
	in, err := ProductStock{}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, InventoryInput{CurrentStock: 0, ReorderPoint: 10, MaxStock: 100, PredictedDemand: 10}, in)

	var p ProductStock
	require.NoError(t, json.Unmarshal([]byte(`{"current_stock":4,"max_stock":0,"avg_demand":2.5}`), &p))
	in, err = p.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 4.0, in.CurrentStock)
	assert.Equal(t, 10.0, in.ReorderPoint)
	assert.Equal(t, 0.0, in.MaxStock)
	assert.Equal(t, 2.5, in.PredictedDemand)

	require.NoError(t, json.Unmarshal([]byte(`{"current_stock":-1}`), &p))
	_, err = p.Resolve()
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestHistoricalPointFallbacks(t *testing.T) {
	p := HistoricalPoint{Date: "2024-01-01", Value: 9}
	assert.Equal(t, 9.0, p.EffectivePrice())
	assert.Equal(t, 1, p.EffectiveQuantity())

	price, qty := 3.5, 4
	p.Price, p.Quantity = &price, &qty
	assert.Equal(t, 3.5, p.EffectivePrice())
	assert.Equal(t, 4, p.EffectiveQuantity())
}

func TestForecastResultMean(t *testing.T) {
	var nilResult *ForecastResult
	assert.Equal(t, 0.0, nilResult.Mean())
	assert.Equal(t, 2.0, (&ForecastResult{Predictions: []float64{1, 2, 3}}).Mean())
}

func TestTrainingStateString(t *testing.T) {
	assert.Equal(t, "untrained", StateUntrained.String())
	assert.Equal(t, "training", StateTraining.String())
	assert.Equal(t, "trained", StateTrained.String())
	assert.Equal(t, "unknown", TrainingState(9).String())
}
