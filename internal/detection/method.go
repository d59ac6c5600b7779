package detection

// Method is the closed set of detection methods. Unknown method names
// resolve to the default at the engine boundary, so a Method value is
// always one of the variants below.
type Method int

const (
	// MethodIsolationForest is the default ensemble isolation scorer.
	MethodIsolationForest Method = iota
	// MethodZScore flags deviations from the global mean.
	MethodZScore
	// MethodMovingAverage flags deviations from a trailing rolling mean.
	MethodMovingAverage
	// MethodLOF flags points with a high local outlier factor.
	MethodLOF
	// MethodMatrixProfile is the advanced subsequence-distance scorer.
	MethodMatrixProfile
)

// DefaultMethod is substituted for unknown method names and for the
// advanced method when it is not available.
const DefaultMethod = MethodIsolationForest

func (m Method) String() string {
	switch m {
	case MethodZScore:
		return "z-score"
	case MethodMovingAverage:
		return "moving-average"
	case MethodLOF:
		return "lof"
	case MethodMatrixProfile:
		return "matrix-profile"
	default:
		return "isolation-forest"
	}
}

// ParseMethod maps a method name to its Method. The second return value is
// false for unknown names.
func ParseMethod(name string) (Method, bool) {
	switch name {
	case "z-score":
		return MethodZScore, true
	case "moving-average":
		return MethodMovingAverage, true
	case "isolation-forest":
		return MethodIsolationForest, true
	case "lof":
		return MethodLOF, true
	case "matrix-profile":
		return MethodMatrixProfile, true
	default:
		return DefaultMethod, false
	}
}
