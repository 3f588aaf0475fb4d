package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWilson_BracketsRawProportion(t *testing.T) {
	// lo <= k/n <= hi and both bounds in [0,1] for every admissible input.
	for n := 1; n <= 60; n++ {
		for k := 0; k <= n; k++ {
			lo, hi := Wilson(k, n, 0.05)
			p := float64(k) / float64(n)
			require.True(t, lo >= 0 && hi <= 1, "bounds outside [0,1] for k=%d n=%d", k, n)
			require.True(t, lo <= p && p <= hi, "interval [%v,%v] excludes p=%v (k=%d n=%d)", lo, hi, p, k, n)
		}
	}
}

func TestWilson_ZeroAndFullSuccesses(t *testing.T) {
	lo, hi := Wilson(0, 10, 0.05)
	assert.Equal(t, 0.0, lo, "k=0 must pin the lower bound to 0")
	// Known closed-form value: the 95% Wilson upper bound for 0/10.
	assert.InDelta(t, 0.27753, hi, 1e-4)

	lo, hi = Wilson(10, 10, 0.05)
	assert.Equal(t, 1.0, hi, "k=n must pin the upper bound to 1")
	assert.InDelta(t, 0.72247, lo, 1e-4)
}

func TestWilson_KnownInterval(t *testing.T) {
	// 1 success in 2 trials: the interval is symmetric around 0.5.
	lo, hi := Wilson(1, 2, 0.05)
	assert.InDelta(t, 0.0945, lo, 1e-3)
	assert.InDelta(t, 0.9055, hi, 1e-3)
	assert.InDelta(t, 0.5, (lo+hi)/2, 1e-12)
}

func TestWilson_ClosedFormAccuracy(t *testing.T) {
	// Recompute the closed form inline for a spread of alphas and compare.
	// The published contract is agreement within 1e-6; AS241 gives far more.
	for _, alpha := range []float64{0.01, 0.05, 0.10, 0.32} {
		for _, tc := range []struct{ k, n int }{{3, 7}, {0, 4}, {12, 12}, {50, 200}} {
			z := NormQuantile(1 - alpha/2)
			p := float64(tc.k) / float64(tc.n)
			fn := float64(tc.n)
			denom := 1 + z*z/fn
			center := (p + z*z/(2*fn)) / denom
			half := z * math.Sqrt((p*(1-p)+z*z/(4*fn))/fn) / denom

			lo, hi := Wilson(tc.k, tc.n, alpha)
			assert.InDelta(t, math.Max(0, center-half), lo, 1e-6)
			assert.InDelta(t, math.Min(1, center+half), hi, 1e-6)
		}
	}
}

func TestRateAndCI_EmptyDenominator(t *testing.T) {
	rate, lo, hi := RateAndCI(0, 0, 0.05)
	assert.True(t, math.IsNaN(rate))
	assert.True(t, math.IsNaN(lo))
	assert.True(t, math.IsNaN(hi))

	rate, lo, hi = RateAndCI(3, -1, 0.05)
	assert.True(t, math.IsNaN(rate))
	assert.True(t, math.IsNaN(lo))
	assert.True(t, math.IsNaN(hi))
}

func TestRateAndCI_Rate(t *testing.T) {
	rate, lo, hi := RateAndCI(1, 2, 0.05)
	assert.Equal(t, 0.5, rate)
	assert.True(t, lo <= rate && rate <= hi)
}

func TestWilsonCenter_ShrinksTowardHalf(t *testing.T) {
	z := zCritical(0.05)

	// Extreme proportions move toward 1/2; 1/2 stays put.
	assert.Greater(t, wilsonCenter(0, 5, z), 0.0)
	assert.Less(t, wilsonCenter(5, 5, z), 1.0)
	assert.InDelta(t, 0.5, wilsonCenter(2, 4, z), 1e-12)
	assert.True(t, math.IsNaN(wilsonCenter(0, 0, z)))
}
