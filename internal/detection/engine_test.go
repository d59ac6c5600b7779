package detection

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opspulse/opspulse-go/internal/config"
)

func testDetectionConfig() config.DetectionConfig {
	return config.DetectionConfig{
		DefaultContamination:  0.01,
		SensitivityLow:        0.05,
		SensitivityMedium:     0.01,
		SensitivityHigh:       0.005,
		ZScoreThreshold:       3.0,
		WindowSize:            10,
		GroupingWindowSeconds: 300,
		AdvancedEnabled:       true,
	}
}

func newTestEngine(t *testing.T, cfg config.DetectionConfig) *Engine {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewEngine(cfg, logger)
}

// evenSeries builds n evenly spaced points starting at a fixed instant.
func evenSeries(n int, step time.Duration, value float64) ([]time.Time, []float64) {
	base := time.Date(2025, 12, 28, 22, 0, 0, 0, time.UTC)
	timestamps := make([]time.Time, n)
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		timestamps[i] = base.Add(time.Duration(i) * step)
		values[i] = value
	}
	return timestamps, values
}

func TestDetectEmptyInput(t *testing.T) {
	engine := newTestEngine(t, testDetectionConfig())

	outcome := engine.Detect(nil, nil, "isolation-forest", "medium")

	assert.Equal(t, "none", outcome.Method)
	assert.Empty(t, outcome.Points)
	assert.Zero(t, outcome.AnomalyCount)
}

func TestDetectMismatchedLengths(t *testing.T) {
	engine := newTestEngine(t, testDetectionConfig())
	timestamps, values := evenSeries(20, time.Minute, 50)

	outcome := engine.Detect(timestamps[:10], values, "z-score", "medium")

	assert.Empty(t, outcome.Points)
	assert.Zero(t, outcome.AnomalyCount)
}

func TestDetectUnknownMethodFallsBack(t *testing.T) {
	engine := newTestEngine(t, testDetectionConfig())
	timestamps, values := evenSeries(30, time.Minute, 50)
	values[15] = 500

	outcome := engine.Detect(timestamps, values, "prophet", "medium")

	assert.Equal(t, "isolation-forest", outcome.Method)
	assert.Len(t, outcome.Points, len(values))
}

func TestDetectAdvancedUnavailableSubstitutesDefault(t *testing.T) {
	cfg := testDetectionConfig()
	cfg.AdvancedEnabled = false
	engine := newTestEngine(t, cfg)
	require.False(t, engine.AdvancedAvailable())

	timestamps, values := evenSeries(40, time.Minute, 50)

	outcome := engine.Detect(timestamps, values, "matrix-profile", "medium")

	assert.Equal(t, "isolation-forest", outcome.Method)
}

func TestDetectAdvancedAvailable(t *testing.T) {
	engine := newTestEngine(t, testDetectionConfig())
	timestamps, values := evenSeries(40, time.Minute, 50)

	outcome := engine.Detect(timestamps, values, "matrix-profile", "medium")

	assert.Equal(t, "matrix-profile", outcome.Method)
	assert.Len(t, outcome.Points, len(values))
}

func TestDetectOutcomeInvariants(t *testing.T) {
	engine := newTestEngine(t, testDetectionConfig())
	timestamps, values := evenSeries(50, time.Minute, 50)
	values[10] = 180
	values[35] = 220

	for _, method := range []string{"z-score", "moving-average", "isolation-forest", "lof", "matrix-profile"} {
		t.Run(method, func(t *testing.T) {
			outcome := engine.Detect(timestamps, values, method, "medium")

			require.Len(t, outcome.Points, len(values))

			count := 0
			for _, p := range outcome.Points {
				assert.GreaterOrEqual(t, p.Score, 0.0)
				assert.LessOrEqual(t, p.Score, 1.0)
				if p.IsAnomaly {
					count++
					assert.NotEmpty(t, p.Reason)
				} else {
					assert.Empty(t, p.Reason)
				}
			}
			assert.Equal(t, count, outcome.AnomalyCount)
			assert.GreaterOrEqual(t, outcome.DetectionTimeMs, 0.0)
		})
	}
}

func TestDetectDeterministicScorersAreIdempotent(t *testing.T) {
	engine := newTestEngine(t, testDetectionConfig())
	timestamps, values := evenSeries(60, time.Minute, 50)
	values[20] = 300
	values[45] = 5

	for _, method := range []string{"z-score", "moving-average"} {
		t.Run(method, func(t *testing.T) {
			first := engine.Detect(timestamps, values, method, "medium")
			second := engine.Detect(timestamps, values, method, "medium")

			require.Len(t, second.Points, len(first.Points))
			for i := range first.Points {
				assert.Equal(t, first.Points[i].IsAnomaly, second.Points[i].IsAnomaly)
				assert.Equal(t, first.Points[i].Score, second.Points[i].Score)
			}
		})
	}
}

func TestDetectEndToEndScenario(t *testing.T) {
	// 50 evenly spaced points, constant 50.0 except a spike at index 30.
	engine := newTestEngine(t, testDetectionConfig())
	timestamps, values := evenSeries(50, time.Minute, 50)
	values[30] = 200

	outcome := engine.Detect(timestamps, values, "isolation-forest", "medium")

	require.Len(t, outcome.Points, 50)
	assert.GreaterOrEqual(t, outcome.AnomalyCount, 1)
	assert.True(t, outcome.Points[30].IsAnomaly, "spike at index 30 should be flagged")

	flags := make([]bool, len(outcome.Points))
	scores := make([]float64, len(outcome.Points))
	for i, p := range outcome.Points {
		flags[i] = p.IsAnomaly
		scores[i] = p.Score
	}

	events := engine.GroupEvents(timestamps, flags, scores, values, "cpu")
	require.Len(t, events, 1)
	assert.GreaterOrEqual(t, events[0].AnomalyPoints, 1)
	assert.False(t, events[0].StartTime.After(timestamps[30]))
	assert.False(t, events[0].EndTime.Before(timestamps[30]))
}

func TestContaminationForSensitivity(t *testing.T) {
	engine := newTestEngine(t, testDetectionConfig())

	tests := []struct {
		sensitivity string
		want        float64
	}{
		{"low", 0.05},
		{"medium", 0.01},
		{"high", 0.005},
		{"extreme", 0.01},
		{"", 0.01},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, engine.contaminationFor(tt.sensitivity), tt.sensitivity)
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		name  string
		want  Method
		known bool
	}{
		{"z-score", MethodZScore, true},
		{"moving-average", MethodMovingAverage, true},
		{"isolation-forest", MethodIsolationForest, true},
		{"lof", MethodLOF, true},
		{"matrix-profile", MethodMatrixProfile, true},
		{"prophet", MethodIsolationForest, false},
		{"", MethodIsolationForest, false},
	}

	for _, tt := range tests {
		method, known := ParseMethod(tt.name)
		assert.Equal(t, tt.want, method, tt.name)
		assert.Equal(t, tt.known, known, tt.name)
	}
}

type panickyScorer struct{}

func (panickyScorer) FitPredict([]float64, float64) ([]bool, []float64) {
	panic("numerical failure")
}

func TestRunScorerRecoversFromPanic(t *testing.T) {
	engine := newTestEngine(t, testDetectionConfig())
	values := []float64{1, 2, 3, 4, 5}

	flags, scores := func() (f []bool, s []float64) {
		defer func() {
			// Detect-level recovery lives in runScorer; a panic escaping
			// here would fail the test.
			require.Nil(t, recover())
		}()
		f, s = engine.runScorer(panickyScorer{}, MethodIsolationForest, values, 0.01)
		return
	}()

	require.Len(t, flags, len(values))
	require.Len(t, scores, len(values))
	for i := range values {
		assert.False(t, flags[i])
		assert.Zero(t, scores[i])
	}
}
