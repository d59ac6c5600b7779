// Package detection implements the anomaly detection and event grouping
// engine: point-level scorers, the detection orchestrator, temporal event
// grouping, and priority ranking.
package detection

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/opspulse/opspulse-go/internal/config"
)

// Scorer is the common contract for all point-level scorers. Both outputs
// have the same length as values and every score lies in [0, 1]. Scorers
// ignore contamination when they use a fixed statistical threshold instead.
type Scorer interface {
	FitPredict(values []float64, contamination float64) (flags []bool, scores []float64)
}

// Point is the per-point detection verdict.
type Point struct {
	Timestamp time.Time
	Value     float64
	Score     float64
	IsAnomaly bool
	Reason    string
}

// Outcome is the result of one detection run over a single series.
type Outcome struct {
	Method          string
	Points          []Point
	AnomalyCount    int
	DetectionTimeMs float64
}

// Engine orchestrates scorer selection, sensitivity resolution, and failure
// recovery. It holds no state across calls beyond its immutable
// configuration, so a single Engine is safe for concurrent use.
type Engine struct {
	cfg               config.DetectionConfig
	logger            *logrus.Logger
	advancedAvailable bool
}

// NewEngine builds an engine from immutable configuration. The advanced
// scorer's availability is resolved here, once, so the fallback path is an
// explicit variant rather than a runtime discovery.
func NewEngine(cfg config.DetectionConfig, logger *logrus.Logger) *Engine {
	return &Engine{
		cfg:               cfg,
		logger:            logger,
		advancedAvailable: cfg.AdvancedEnabled,
	}
}

// AdvancedAvailable reports whether the matrix-profile scorer is offered.
func (e *Engine) AdvancedAvailable() bool {
	return e.advancedAvailable
}

// Detect runs anomaly detection over one series. It never fails: malformed
// input yields an empty outcome, unknown methods fall back to the default,
// and a scorer failure degrades to an all-normal result.
func (e *Engine) Detect(timestamps []time.Time, values []float64, methodName, sensitivity string) Outcome {
	if len(values) == 0 || len(timestamps) != len(values) {
		if len(timestamps) != len(values) {
			e.logger.WithFields(logrus.Fields{
				"timestamps": len(timestamps),
				"values":     len(values),
			}).Warn("Mismatched series lengths, returning empty outcome")
		}
		return Outcome{Method: "none", Points: []Point{}}
	}

	method, known := ParseMethod(methodName)
	if !known {
		e.logger.WithField("method", methodName).Warn("Unknown detection method, using isolation-forest")
	}
	if method == MethodMatrixProfile && !e.advancedAvailable {
		e.logger.Warn("Matrix profile scorer not available, using isolation-forest")
		method = DefaultMethod
	}

	contamination := e.contaminationFor(sensitivity)

	start := time.Now()
	flags, scores := e.runScorer(e.scorerFor(method), method, values, contamination)
	elapsed := roundFloat(float64(time.Since(start).Microseconds())/1000, 2)

	points := make([]Point, len(values))
	anomalyCount := 0
	for i := range values {
		p := Point{
			Timestamp: timestamps[i],
			Value:     values[i],
			Score:     scores[i],
			IsAnomaly: flags[i],
		}
		if flags[i] {
			anomalyCount++
			p.Reason = e.reasonFor(method, scores[i], values[i])
		}
		points[i] = p
	}

	e.logger.WithFields(logrus.Fields{
		"method":            method.String(),
		"anomaly_count":     anomalyCount,
		"total_points":      len(values),
		"detection_time_ms": elapsed,
	}).Info("Detection complete")

	return Outcome{
		Method:          method.String(),
		Points:          points,
		AnomalyCount:    anomalyCount,
		DetectionTimeMs: elapsed,
	}
}

// runScorer invokes the scorer for the resolved method. A panic or a
// malformed scorer result degrades to an all-normal outcome instead of
// aborting the caller.
func (e *Engine) runScorer(scorer Scorer, method Method, values []float64, contamination float64) (flags []bool, scores []float64) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithFields(logrus.Fields{
				"method": method.String(),
				"panic":  fmt.Sprint(r),
			}).Warn("Scorer failed, treating series as non-anomalous")
			flags = make([]bool, len(values))
			scores = make([]float64, len(values))
		}
	}()

	flags, scores = scorer.FitPredict(values, contamination)

	if len(flags) != len(values) || len(scores) != len(values) {
		e.logger.WithField("method", method.String()).Warn("Scorer returned malformed output, treating series as non-anomalous")
		flags = make([]bool, len(values))
		scores = make([]float64, len(values))
	}
	return flags, scores
}

// scorerFor is the single dispatch point over the closed method set.
func (e *Engine) scorerFor(method Method) Scorer {
	switch method {
	case MethodZScore:
		return ZScoreScorer{Threshold: e.cfg.ZScoreThreshold}
	case MethodMovingAverage:
		return MovingAverageScorer{WindowSize: e.cfg.WindowSize, Threshold: e.cfg.ZScoreThreshold}
	case MethodLOF:
		return NewLOFScorer()
	case MethodMatrixProfile:
		return NewMatrixProfileScorer()
	default:
		return NewIsolationForestScorer()
	}
}

// contaminationFor maps a sensitivity level to a contamination fraction.
// Lower sensitivity means a larger fraction is treated as normal. Unknown
// levels fall back to the default contamination.
func (e *Engine) contaminationFor(sensitivity string) float64 {
	switch sensitivity {
	case "low":
		return e.cfg.SensitivityLow
	case "medium":
		return e.cfg.SensitivityMedium
	case "high":
		return e.cfg.SensitivityHigh
	default:
		return e.cfg.DefaultContamination
	}
}

// reasonFor generates the advisory explanation attached to flagged points.
func (e *Engine) reasonFor(method Method, score, value float64) string {
	switch method {
	case MethodZScore:
		sigma := score * e.cfg.ZScoreThreshold * 2
		return fmt.Sprintf("Value %.2f is %.1f standard deviations from the mean", value, sigma)
	case MethodMovingAverage:
		return fmt.Sprintf("Value %.2f diverges from the local rolling mean", value)
	default:
		return fmt.Sprintf("Anomaly score: %.3f", score)
	}
}

func roundFloat(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
