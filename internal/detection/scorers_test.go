package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantValues(n int, v float64) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = v
	}
	return values
}

func assertScorerContract(t *testing.T, flags []bool, scores []float64, n int) {
	t.Helper()
	require.Len(t, flags, n)
	require.Len(t, scores, n)
	for i, s := range scores {
		assert.GreaterOrEqual(t, s, 0.0, "score at %d", i)
		assert.LessOrEqual(t, s, 1.0, "score at %d", i)
	}
}

func TestZScoreScorerConstantSeries(t *testing.T) {
	scorer := ZScoreScorer{Threshold: 3.0}
	values := constantValues(40, 75.5)

	flags, scores := scorer.FitPredict(values, 0.01)

	assertScorerContract(t, flags, scores, len(values))
	for i := range values {
		assert.False(t, flags[i])
		assert.Zero(t, scores[i])
	}
}

func TestZScoreScorerFlagsSpike(t *testing.T) {
	scorer := ZScoreScorer{Threshold: 3.0}
	values := constantValues(50, 50)
	// Mild noise keeps the standard deviation non-zero.
	for i := 0; i < len(values); i += 2 {
		values[i] = 51
	}
	values[30] = 500

	flags, scores := scorer.FitPredict(values, 0.01)

	assertScorerContract(t, flags, scores, len(values))
	assert.True(t, flags[30])
	assert.Greater(t, scores[30], scores[0])
}

func TestZScoreScorerScoreNormalization(t *testing.T) {
	// |z| / (2 * threshold), clamped to [0, 1].
	scorer := ZScoreScorer{Threshold: 3.0}
	values := []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 1000}

	_, scores := scorer.FitPredict(values, 0.01)

	assertScorerContract(t, make([]bool, len(values)), scores, len(values))
	assert.LessOrEqual(t, scores[9], 1.0)
	assert.Greater(t, scores[9], 0.0)
}

func TestMovingAverageScorerConstantSeries(t *testing.T) {
	scorer := MovingAverageScorer{WindowSize: 10, Threshold: 3.0}
	values := constantValues(40, 60)

	flags, scores := scorer.FitPredict(values, 0.01)

	assertScorerContract(t, flags, scores, len(values))
	for i := range values {
		assert.False(t, flags[i])
	}
}

func TestMovingAverageScorerColdStart(t *testing.T) {
	scorer := MovingAverageScorer{WindowSize: 10, Threshold: 3.0}
	// Wild values inside the cold-start window must never be flagged.
	values := []float64{1000, -1000, 5000, 0, 9000, -3000, 50, 50, 50, 50,
		50, 50, 50, 50, 50, 50, 50, 50, 50, 50}

	flags, scores := scorer.FitPredict(values, 0.01)

	assertScorerContract(t, flags, scores, len(values))
	for i := 0; i < scorer.WindowSize; i++ {
		assert.False(t, flags[i], "cold-start point %d", i)
		assert.Zero(t, scores[i], "cold-start point %d", i)
	}
}

func TestMovingAverageScorerShortSeries(t *testing.T) {
	scorer := MovingAverageScorer{WindowSize: 10, Threshold: 3.0}
	values := []float64{1, 2, 3, 4, 5}

	flags, scores := scorer.FitPredict(values, 0.01)

	assertScorerContract(t, flags, scores, len(values))
	for i := range values {
		assert.False(t, flags[i])
		assert.Zero(t, scores[i])
	}
}

func TestMovingAverageScorerFlagsLocalSpike(t *testing.T) {
	// A spike sits inside its own trailing window, which caps |z| at
	// sqrt(window-1); window 12 leaves headroom above the 3.0 threshold.
	scorer := MovingAverageScorer{WindowSize: 12, Threshold: 3.0}
	values := make([]float64, 30)
	for i := range values {
		values[i] = 50 + float64(i%3)
	}
	values[25] = 4000

	flags, scores := scorer.FitPredict(values, 0.01)

	assertScorerContract(t, flags, scores, len(values))
	assert.True(t, flags[25])
}

func TestIsolationForestScorerContract(t *testing.T) {
	scorer := NewIsolationForestScorer()
	values := constantValues(50, 50)
	values[30] = 200

	flags, scores := scorer.FitPredict(values, 0.01)

	assertScorerContract(t, flags, scores, len(values))
	assert.True(t, flags[30], "spike should isolate quickly")
}

func TestIsolationForestScorerConstantSeries(t *testing.T) {
	scorer := NewIsolationForestScorer()
	values := constantValues(50, 50)

	flags, scores := scorer.FitPredict(values, 0.01)

	assertScorerContract(t, flags, scores, len(values))
	for i := range values {
		assert.False(t, flags[i], "constant series must not be flagged")
	}
}

func TestIsolationForestScorerDeterministic(t *testing.T) {
	scorer := NewIsolationForestScorer()
	values := constantValues(60, 50)
	values[10] = 300
	values[40] = 2

	flags1, scores1 := scorer.FitPredict(values, 0.01)
	flags2, scores2 := scorer.FitPredict(values, 0.01)

	assert.Equal(t, flags1, flags2)
	assert.Equal(t, scores1, scores2)
}

func TestLOFScorerShortSeries(t *testing.T) {
	scorer := NewLOFScorer()
	values := []float64{42, 42}

	flags, scores := scorer.FitPredict(values, 0.01)

	assertScorerContract(t, flags, scores, len(values))
	for i := range values {
		assert.False(t, flags[i])
		assert.Zero(t, scores[i])
	}
}

func TestLOFScorerFlagsDensityOutlier(t *testing.T) {
	scorer := NewLOFScorer()
	values := make([]float64, 50)
	for i := range values {
		values[i] = 50 + float64(i%5)
	}
	values[30] = 500

	flags, scores := scorer.FitPredict(values, 0.05)

	assertScorerContract(t, flags, scores, len(values))
	assert.True(t, flags[30])
}

func TestLOFScorerCapsNeighborhood(t *testing.T) {
	// Ten points force k down to n-1 without failing.
	scorer := NewLOFScorer()
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 100}

	flags, scores := scorer.FitPredict(values, 0.1)

	assertScorerContract(t, flags, scores, len(values))
}

func TestMatrixProfileScorerShortSeries(t *testing.T) {
	scorer := NewMatrixProfileScorer()
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8}

	flags, scores := scorer.FitPredict(values, 0.01)

	assertScorerContract(t, flags, scores, len(values))
	for i := range values {
		assert.False(t, flags[i])
		assert.Zero(t, scores[i])
	}
}

func TestMatrixProfileScorerConstantSeries(t *testing.T) {
	scorer := NewMatrixProfileScorer()
	values := constantValues(60, 75)

	flags, scores := scorer.FitPredict(values, 0.01)

	assertScorerContract(t, flags, scores, len(values))
	for i := range values {
		assert.False(t, flags[i])
	}
}

func TestMatrixProfileScorerScoresDiscord(t *testing.T) {
	scorer := NewMatrixProfileScorer()
	values := make([]float64, 80)
	for i := range values {
		values[i] = 50 + float64(i%4)
	}
	values[40] = 400

	flags, scores := scorer.FitPredict(values, 0.01)

	assertScorerContract(t, flags, scores, len(values))
	// The discord region around the spike must outscore the repeating
	// pattern far from it.
	assert.Greater(t, scores[40], scores[5])
}

func TestFeatureMatrix(t *testing.T) {
	features := featureMatrix([]float64{10, 20, 0, 5})

	require.Len(t, features, 4)
	assert.Equal(t, []float64{10, 0, 0}, features[0])
	assert.Equal(t, []float64{20, 10, 1}, features[1])
	assert.Equal(t, []float64{0, -20, -1}, features[2])
	// Previous value is zero, so the rate is defined as zero.
	assert.Equal(t, []float64{5, 5, 0}, features[3])
}

func TestQuantile(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	assert.Equal(t, 1.0, quantile(values, 0))
	assert.Equal(t, 3.0, quantile(values, 0.5))
	assert.Equal(t, 5.0, quantile(values, 1))
	assert.InDelta(t, 4.96, quantile(values, 0.99), 1e-9)
}
