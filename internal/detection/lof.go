package detection

import (
	"math"
	"sort"
)

const lofDefaultNeighbors = 20

// LOFScorer flags points whose local density is low relative to the density
// of their nearest neighbors.
type LOFScorer struct {
	NumNeighbors int
}

// NewLOFScorer returns a scorer with the standard neighborhood size.
func NewLOFScorer() LOFScorer {
	return LOFScorer{NumNeighbors: lofDefaultNeighbors}
}

// FitPredict computes the local outlier factor over the derived feature
// matrix. The neighborhood is capped at len(values)-1; with fewer than two
// usable neighbors the series is returned untouched. Scores are the factors
// min-max normalized to [0, 1].
func (s LOFScorer) FitPredict(values []float64, contamination float64) ([]bool, []float64) {
	flags := make([]bool, len(values))
	scores := make([]float64, len(values))

	k := s.NumNeighbors
	if k > len(values)-1 {
		k = len(values) - 1
	}
	if k < 2 {
		return flags, scores
	}

	features := featureMatrix(values)
	factors := localOutlierFactors(features, k)

	boundary := quantile(factors, 1-contamination)
	normalized := minMaxNormalize(factors)
	for i, f := range factors {
		flags[i] = f > boundary
		scores[i] = normalized[i]
	}

	return flags, scores
}

// lrdCeiling caps the local reachability density when a point sits inside a
// cluster of exact duplicates and its reachability sum collapses to zero.
const lrdCeiling = 1e10

func localOutlierFactors(features [][]float64, k int) []float64 {
	n := len(features)

	// Pairwise distances and k nearest neighbors per point.
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := euclidean(features[i], features[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	neighbors := make([][]int, n)
	kDist := make([]float64, n)
	for i := 0; i < n; i++ {
		order := make([]int, 0, n-1)
		for j := 0; j < n; j++ {
			if j != i {
				order = append(order, j)
			}
		}
		sort.Slice(order, func(a, b int) bool { return dist[i][order[a]] < dist[i][order[b]] })
		neighbors[i] = order[:k]
		kDist[i] = dist[i][order[k-1]]
	}

	// Local reachability density.
	lrd := make([]float64, n)
	for i := 0; i < n; i++ {
		var reachSum float64
		for _, j := range neighbors[i] {
			reachSum += math.Max(kDist[j], dist[i][j])
		}
		if reachSum == 0 {
			lrd[i] = lrdCeiling
		} else {
			lrd[i] = float64(k) / reachSum
		}
	}

	factors := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for _, j := range neighbors[i] {
			sum += lrd[j]
		}
		factors[i] = sum / (float64(k) * lrd[i])
	}
	return factors
}

func euclidean(a, b []float64) float64 {
	var sq float64
	for i := range a {
		d := a[i] - b[i]
		sq += d * d
	}
	return math.Sqrt(sq)
}
