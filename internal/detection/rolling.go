package detection

import (
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
)

// rollingStdEpsilon replaces a zero rolling standard deviation so a flat
// window does not divide by zero.
const rollingStdEpsilon = 1e-6

// MovingAverageScorer flags points that diverge from a trailing rolling
// mean by more than Threshold rolling standard deviations. The first
// WindowSize points never have a full window behind them and always score
// zero; that cold start is deliberate.
type MovingAverageScorer struct {
	WindowSize int
	Threshold  float64
}

// FitPredict computes the trailing rolling statistics and scores each point
// against the window ending at it. A series shorter than the window is
// returned untouched.
func (s MovingAverageScorer) FitPredict(values []float64, _ float64) ([]bool, []float64) {
	flags := make([]bool, len(values))
	scores := make([]float64, len(values))

	if len(values) < s.WindowSize {
		return flags, scores
	}

	sma := trend.NewSmaWithPeriod[float64](s.WindowSize)
	rollingMean := helper.ChanToSlice(sma.Compute(helper.SliceToChan(values)))

	// rollingMean[j] covers values[j : j+WindowSize], so the window ending
	// at point i is rollingMean[i-WindowSize+1].
	for i := s.WindowSize; i < len(values); i++ {
		mean := rollingMean[i-s.WindowSize+1]
		std := windowStd(values[i-s.WindowSize+1:i+1], mean)
		if std == 0 {
			std = rollingStdEpsilon
		}

		z := math.Abs(values[i]-mean) / std
		flags[i] = z > s.Threshold
		scores[i] = clamp(z/(s.Threshold*2), 0, 1)
	}

	return flags, scores
}

func windowStd(window []float64, mean float64) float64 {
	var sq float64
	for _, v := range window {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(window)))
}
