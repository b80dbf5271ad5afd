package forecast

const (
	lowerBandFactor = 0.9
	upperBandFactor = 1.1
)

// Band returns a fixed ±10% envelope around each prediction.
func Band(predictions []float64) (lower, upper []float64) {
	lower = make([]float64, len(predictions))
	upper = make([]float64, len(predictions))
	for i, p := range predictions {
		lower[i] = p * lowerBandFactor
		upper[i] = p * upperBandFactor
	}
	return lower, upper
}

// Intervals wraps Band in the confidence_intervals wire shape.
func Intervals(predictions []float64) map[string][]float64 {
	lower, upper := Band(predictions)
	return map[string][]float64{
		"lower": lower,
		"upper": upper,
	}
}
