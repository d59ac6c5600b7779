package detection

import (
	"math"
	"math/rand"
)

const (
	iforestTrees      = 100
	iforestSampleSize = 256
	iforestSeed       = 42
)

// IsolationForestScorer is the default scorer. It builds an ensemble of
// random isolation trees over the derived feature matrix; points that
// isolate in few splits get a high anomaly score. The seed is fixed so the
// same input always produces the same forest.
type IsolationForestScorer struct {
	Trees      int
	SampleSize int
	Seed       int64
}

// NewIsolationForestScorer returns a scorer with the standard ensemble
// parameters.
func NewIsolationForestScorer() IsolationForestScorer {
	return IsolationForestScorer{
		Trees:      iforestTrees,
		SampleSize: iforestSampleSize,
		Seed:       iforestSeed,
	}
}

// FitPredict fits the ensemble with the given contamination fraction and
// flags points whose isolation score exceeds the contamination-implied
// boundary. The returned score is a logistic squash of the isolation score,
// larger meaning more anomalous.
func (s IsolationForestScorer) FitPredict(values []float64, contamination float64) ([]bool, []float64) {
	flags := make([]bool, len(values))
	scores := make([]float64, len(values))
	if len(values) == 0 {
		return flags, scores
	}

	features := featureMatrix(values)
	isolation := s.isolationScores(features)

	// The boundary is the (1 - contamination) quantile of the isolation
	// scores. A strict comparison keeps constant series, where every score
	// ties, from being flagged.
	boundary := quantile(isolation, 1-contamination)
	for i, iso := range isolation {
		flags[i] = iso > boundary
		scores[i] = 1 / (1 + math.Exp(-iso))
	}

	return flags, scores
}

// isolationScores returns the per-sample ensemble anomaly score in (0, 1).
func (s IsolationForestScorer) isolationScores(features [][]float64) []float64 {
	n := len(features)
	sample := s.SampleSize
	if sample > n {
		sample = n
	}

	rng := rand.New(rand.NewSource(s.Seed))
	heightLimit := int(math.Ceil(math.Log2(math.Max(float64(sample), 2))))

	pathSums := make([]float64, n)
	for t := 0; t < s.Trees; t++ {
		tree := buildIsolationTree(sampleRows(rng, features, sample), 0, heightLimit, rng)
		for i, row := range features {
			pathSums[i] += tree.pathLength(row, 0)
		}
	}

	norm := averagePathLength(sample)
	if norm == 0 {
		norm = 1
	}
	scores := make([]float64, n)
	for i := range scores {
		avg := pathSums[i] / float64(s.Trees)
		scores[i] = math.Pow(2, -avg/norm)
	}
	return scores
}

// sampleRows draws a subsample without replacement.
func sampleRows(rng *rand.Rand, features [][]float64, size int) [][]float64 {
	if size >= len(features) {
		return features
	}
	idx := rng.Perm(len(features))[:size]
	rows := make([][]float64, size)
	for i, j := range idx {
		rows[i] = features[j]
	}
	return rows
}

type isolationNode struct {
	left, right *isolationNode
	splitDim    int
	splitValue  float64
	size        int
}

func buildIsolationTree(rows [][]float64, depth, limit int, rng *rand.Rand) *isolationNode {
	if len(rows) <= 1 || depth >= limit {
		return &isolationNode{size: len(rows)}
	}

	dims := len(rows[0])
	// Pick a random dimension with spread; identical rows cannot be split.
	order := rng.Perm(dims)
	splitDim := -1
	var lo, hi float64
	for _, d := range order {
		lo, hi = rows[0][d], rows[0][d]
		for _, row := range rows[1:] {
			if row[d] < lo {
				lo = row[d]
			}
			if row[d] > hi {
				hi = row[d]
			}
		}
		if hi > lo {
			splitDim = d
			break
		}
	}
	if splitDim < 0 {
		return &isolationNode{size: len(rows)}
	}

	splitValue := lo + rng.Float64()*(hi-lo)

	var left, right [][]float64
	for _, row := range rows {
		if row[splitDim] < splitValue {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &isolationNode{size: len(rows)}
	}

	return &isolationNode{
		splitDim:   splitDim,
		splitValue: splitValue,
		left:       buildIsolationTree(left, depth+1, limit, rng),
		right:      buildIsolationTree(right, depth+1, limit, rng),
	}
}

func (n *isolationNode) pathLength(row []float64, depth int) float64 {
	if n.left == nil {
		// Unresolved leaves stand in for the subtree that would have
		// isolated the remaining points.
		return float64(depth) + averagePathLength(n.size)
	}
	if row[n.splitDim] < n.splitValue {
		return n.left.pathLength(row, depth+1)
	}
	return n.right.pathLength(row, depth+1)
}

// averagePathLength is c(n), the expected path length of an unsuccessful
// BST search over n points.
func averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	if n == 2 {
		return 1
	}
	h := math.Log(float64(n-1)) + 0.5772156649
	return 2*h - 2*float64(n-1)/float64(n)
}
