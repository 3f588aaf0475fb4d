package fairness

import "math"

// DisparityRatio returns rate / refRate. NaN when either rate is undefined
// or the reference rate is not strictly positive - division by zero is
// never allowed to surface.
func DisparityRatio(rate, refRate float64) float64 {
	if math.IsNaN(rate) || math.IsNaN(refRate) || refRate <= 0 {
		return math.NaN()
	}
	return rate / refRate
}

// RiskDifference returns rate - refRate, NaN when either is undefined.
func RiskDifference(rate, refRate float64) float64 {
	if math.IsNaN(rate) || math.IsNaN(refRate) {
		return math.NaN()
	}
	return rate - refRate
}

// ParityDifference returns refRate - rate, the negated risk difference.
func ParityDifference(refRate, rate float64) float64 {
	return -RiskDifference(rate, refRate)
}

// negateInterval flips a (lo, hi) interval across zero: the interval of -X
// is (-hi, -lo). NaN bounds stay NaN.
func negateInterval(lo, hi float64) (float64, float64) {
	return -hi, -lo
}
