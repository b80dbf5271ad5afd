package forecast

import "fmt"

// FallbackCertainty is the certainty score reported by the trend pipeline.
const FallbackCertainty = 0.75

// Narrative is the human-facing part of a fallback forecast.
type Narrative struct {
	CertaintyScore  float64
	Recommendations []string
	Text            string
}

// Direction names the sign of a slope. Flat counts as a decrease.
func Direction(slope float64) string {
	if slope > 0 {
		return "increase"
	}
	return "decrease"
}

// Narrate is deterministic in (product, sign(slope), horizon).
func Narrate(product string, slope float64, horizon int) Narrative {
	direction := Direction(slope)
	return Narrative{
		CertaintyScore: FallbackCertainty,
		Recommendations: []string{
			fmt.Sprintf("Monitor %s closely", product),
			fmt.Sprintf("Trend shows %s in demand", direction),
			"Consider adjusting inventory levels accordingly",
		},
		Text: fmt.Sprintf("Based on historical trends, %s is expected to %s over the next %d days.", product, direction, horizon),
	}
}
