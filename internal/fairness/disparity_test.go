package fairness

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisparityRatio(t *testing.T) {
	assert.Equal(t, 1.0, DisparityRatio(0.5, 0.5), "a group against itself is exactly 1.0")
	assert.Equal(t, 2.0, DisparityRatio(1.0, 0.5))
	assert.Equal(t, 0.5, DisparityRatio(0.25, 0.5))

	assert.True(t, math.IsNaN(DisparityRatio(0.5, 0)), "zero reference rate is undefined, never a panic")
	assert.True(t, math.IsNaN(DisparityRatio(math.NaN(), 0.5)))
	assert.True(t, math.IsNaN(DisparityRatio(0.5, math.NaN())))
}

func TestRiskDifference(t *testing.T) {
	assert.InDelta(t, -0.25, RiskDifference(0.25, 0.5), 1e-15)
	assert.Equal(t, 0.0, RiskDifference(0.5, 0.5))
	assert.True(t, math.IsNaN(RiskDifference(math.NaN(), 0.5)))
}

func TestParityDifference_IsNegatedRiskDifference(t *testing.T) {
	for _, tc := range []struct{ rate, ref float64 }{
		{0.25, 0.5}, {0.9, 0.3}, {0.5, 0.5}, {0, 1},
	} {
		assert.Equal(t, -RiskDifference(tc.rate, tc.ref), ParityDifference(tc.ref, tc.rate),
			"parity_diff must equal -risk_diff for rate=%v ref=%v", tc.rate, tc.ref)
	}
}

func TestNegateInterval(t *testing.T) {
	lo, hi := negateInterval(-0.3, 0.1)
	assert.Equal(t, -0.1, lo)
	assert.Equal(t, 0.3, hi)
	assert.LessOrEqual(t, lo, hi)

	lo, hi = negateInterval(math.NaN(), math.NaN())
	assert.True(t, math.IsNaN(lo))
	assert.True(t, math.IsNaN(hi))
}
