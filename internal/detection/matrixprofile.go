package detection

import "math"

const matrixProfileSubsequence = 10

// MatrixProfileScorer is the advanced scorer. It computes a nearest-neighbor
// distance profile over z-normalized subsequences of the raw series; a
// subsequence far from every other subsequence is a discord, the matrix
// profile notion of an anomaly. Whether the scorer is offered at all is a
// startup capability decision made by the engine.
type MatrixProfileScorer struct {
	SubsequenceLength int
}

// NewMatrixProfileScorer returns a scorer with the standard subsequence
// length.
func NewMatrixProfileScorer() MatrixProfileScorer {
	return MatrixProfileScorer{SubsequenceLength: matrixProfileSubsequence}
}

// FitPredict builds the distance profile, min-max normalizes it, and flags
// points above the (1 - contamination) percentile of the normalized scores.
// Series too short to hold two non-overlapping subsequences are returned
// untouched.
func (s MatrixProfileScorer) FitPredict(values []float64, contamination float64) ([]bool, []float64) {
	flags := make([]bool, len(values))
	scores := make([]float64, len(values))

	m := s.SubsequenceLength
	if m < 3 {
		m = 3
	}
	if len(values) < 2*m {
		return flags, scores
	}

	profile := distanceProfile(values, m)

	// Spread each subsequence distance onto its starting point; the tail
	// points fall under the last subsequence.
	pointScores := make([]float64, len(values))
	for i := range pointScores {
		j := i
		if j > len(profile)-1 {
			j = len(profile) - 1
		}
		pointScores[i] = profile[j]
	}

	normalized := minMaxNormalize(pointScores)
	boundary := quantile(normalized, 1-contamination)
	for i, v := range normalized {
		flags[i] = v > boundary
		scores[i] = v
	}

	return flags, scores
}

// distanceProfile returns, for each subsequence start, the z-normalized
// Euclidean distance to its nearest non-overlapping neighbor.
func distanceProfile(values []float64, m int) []float64 {
	count := len(values) - m + 1
	subsequences := make([][]float64, count)
	for i := 0; i < count; i++ {
		subsequences[i] = zNormalize(values[i : i+m])
	}

	profile := make([]float64, count)
	for i := 0; i < count; i++ {
		best := math.Inf(1)
		for j := 0; j < count; j++ {
			// Exclusion zone: overlapping subsequences trivially match.
			if abs(i-j) < m {
				continue
			}
			if d := euclidean(subsequences[i], subsequences[j]); d < best {
				best = d
			}
		}
		if math.IsInf(best, 1) {
			best = 0
		}
		profile[i] = best
	}
	return profile
}

func zNormalize(window []float64) []float64 {
	mean, std := meanStd(window)
	normalized := make([]float64, len(window))
	if std == 0 {
		return normalized
	}
	for i, v := range window {
		normalized[i] = (v - mean) / std
	}
	return normalized
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
