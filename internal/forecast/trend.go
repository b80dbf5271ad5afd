package forecast

import (
	"fmt"
	"math"

	"github.com/szlkpr/ims-ml-service/internal/domain"
)

// noiseRatio scales the noise standard deviation to the last observed value.
const noiseRatio = 0.1

// Slope is the least-squares slope of values against their index 0..n-1.
// A single point has slope 0.
func Slope(values []float64) (float64, error) {
	n := len(values)
	if n == 0 {
		return 0, fmt.Errorf("%w: trend needs at least one value", domain.ErrInsufficientData)
	}
	if n == 1 {
		return 0, nil
	}

	xMean := float64(n-1) / 2
	var yMean float64
	for _, v := range values {
		yMean += v
	}
	yMean /= float64(n)

	var num, den float64
	for i, v := range values {
		dx := float64(i) - xMean
		num += dx * (v - yMean)
		den += dx * dx
	}
	return num / den, nil
}

// Extrapolate continues the linear trend of values for horizon periods:
// last + slope*(i+1) + N(0, |0.1*last|), floored at 0.
// It returns the predictions and the fitted slope.
func Extrapolate(values []float64, horizon int, rng RandSource) ([]float64, float64, error) {
	if horizon <= 0 {
		return nil, 0, fmt.Errorf("%w: horizon must be positive", domain.ErrInvalidRequest)
	}
	slope, err := Slope(values)
	if err != nil {
		return nil, 0, err
	}

	last := values[len(values)-1]
	stddev := math.Abs(last * noiseRatio)

	predictions := make([]float64, horizon)
	for i := range predictions {
		p := last + slope*float64(i+1) + normal(rng, 0, stddev)
		predictions[i] = math.Max(0, p)
	}
	return predictions, slope, nil
}
