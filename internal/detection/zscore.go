package detection

import "math"

// ZScoreScorer flags points whose distance from the global mean exceeds
// Threshold standard deviations.
type ZScoreScorer struct {
	Threshold float64
}

// FitPredict scores every point against the population mean and standard
// deviation of the whole series. A zero standard deviation means the series
// is constant, so nothing is flagged.
func (s ZScoreScorer) FitPredict(values []float64, _ float64) ([]bool, []float64) {
	flags := make([]bool, len(values))
	scores := make([]float64, len(values))

	mean, std := meanStd(values)
	if std == 0 {
		return flags, scores
	}

	for i, v := range values {
		z := math.Abs(v-mean) / std
		flags[i] = z > s.Threshold
		scores[i] = clamp(z/(s.Threshold*2), 0, 1)
	}

	return flags, scores
}
