package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormQuantile_KnownValues(t *testing.T) {
	testCases := []struct {
		name string
		p    float64
		want float64
	}{
		{"median", 0.5, 0},
		{"p975", 0.975, 1.959963984540054},
		{"p025", 0.025, -1.959963984540054},
		{"p995", 0.995, 2.5758293035489004},
		{"p005", 0.005, -2.5758293035489004},
		{"p99", 0.99, 2.3263478740408408},
		{"p01", 0.01, -2.3263478740408408},
		{"p95", 0.95, 1.6448536269514722},
		{"far tail", 1e-10, -6.361340902404056},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormQuantile(tc.p)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestNormQuantile_Boundaries(t *testing.T) {
	assert.True(t, math.IsInf(NormQuantile(0), -1))
	assert.True(t, math.IsInf(NormQuantile(1), 1))
	assert.True(t, math.IsNaN(NormQuantile(-0.1)))
	assert.True(t, math.IsNaN(NormQuantile(1.1)))
	assert.True(t, math.IsNaN(NormQuantile(math.NaN())))
}

func TestNormQuantile_Symmetry(t *testing.T) {
	for _, p := range []float64{0.001, 0.05, 0.2, 0.4, 0.49} {
		assert.InDelta(t, -NormQuantile(p), NormQuantile(1-p), 1e-12,
			"quantile function must be antisymmetric around 0.5 (p=%v)", p)
	}
}

func TestZCritical_DefaultAlpha(t *testing.T) {
	// The 95% two-sided critical value used throughout the engine.
	assert.InDelta(t, 1.959963984540054, zCritical(0.05), 1e-12)
}
