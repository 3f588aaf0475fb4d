package stats

import "math"

// Wilson returns the Wilson score interval for k successes in n trials at
// significance level alpha. The bounds are clamped to [0, 1] and always
// bracket the raw proportion k/n.
//
// Returns (NaN, NaN) when n <= 0: a group with an empty denominator has no
// defined rate, and the NaN flows through to the result table as-is.
func Wilson(k, n int, alpha float64) (lo, hi float64) {
	if n <= 0 {
		return math.NaN(), math.NaN()
	}

	z := zCritical(alpha)
	z2 := z * z
	p := float64(k) / float64(n)
	fn := float64(n)

	denom := 1 + z2/fn
	center := (p + z2/(2*fn)) / denom
	half := z * math.Sqrt((p*(1-p)+z2/(4*fn))/fn) / denom

	lo = center - half
	hi = center + half
	if lo < 0 {
		lo = 0
	}
	if hi > 1 {
		hi = 1
	}
	return lo, hi
}

// RateAndCI returns the raw rate k/n together with its Wilson interval.
// A zero denominator yields (NaN, NaN, NaN).
func RateAndCI(k, n int, alpha float64) (rate, lo, hi float64) {
	if n <= 0 {
		return math.NaN(), math.NaN(), math.NaN()
	}
	lo, hi = Wilson(k, n, alpha)
	return float64(k) / float64(n), lo, hi
}

// wilsonCenter returns the Wilson-center-stabilized rate for k successes in
// n trials: (p + z²/2n) / (1 + z²/n). The stabilized rate shrinks extreme
// proportions toward 1/2, which suppresses 0/0 artifacts when bootstrap
// draws land on zero counts in small groups.
func wilsonCenter(k, n int, z float64) float64 {
	if n <= 0 {
		return math.NaN()
	}
	z2 := z * z
	p := float64(k) / float64(n)
	fn := float64(n)
	return (p + z2/(2*fn)) / (1 + z2/fn)
}
