package detection

// featureMatrix derives the three per-point features consumed by the
// density-based scorers: the raw value, the first difference from the
// previous point, and the relative rate of change. The first point has no
// predecessor, so its difference and rate are zero, as is the rate wherever
// the previous value is zero.
func featureMatrix(values []float64) [][]float64 {
	features := make([][]float64, len(values))
	for i, v := range values {
		var diff, rate float64
		if i > 0 {
			diff = v - values[i-1]
			if values[i-1] != 0 {
				rate = diff / values[i-1]
			}
		}
		features[i] = []float64{v, diff, rate}
	}
	return features
}
