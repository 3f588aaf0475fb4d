package canon

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_Primitives(t *testing.T) {
	testCases := []struct {
		name string
		in   any
		want string
	}{
		{"null", nil, "null"},
		{"true", true, "true"},
		{"false", false, "false"},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"integral float", 1.0, "1"},
		{"fractional float", 0.5, "0.5"},
		{"string", "hello", `"hello"`},
		{"no html escaping", "a<b&c>d", `"a<b&c>d"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Marshal(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(got))
		})
	}
}

func TestMarshal_NonFiniteFloatsRejected(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := Marshal(f)
		assert.Error(t, err, "non-finite %v must be rejected", f)
	}

	_, err := Marshal(map[string]any{"rate": math.NaN()})
	assert.Error(t, err, "non-finite floats must be rejected inside objects")
}

func TestMarshal_ObjectKeysSorted(t *testing.T) {
	got, err := Marshal(map[string]any{
		"zeta":  1,
		"alpha": 2,
		"mid":   3,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"mid":3,"zeta":1}`, string(got))
}

func TestMarshal_Deterministic(t *testing.T) {
	payload := map[string]any{
		"groups": []any{"White", "Black", "Asian"},
		"rates":  map[string]any{"White": 0.5, "Black": 1.0},
		"n":      4,
	}

	a, err := Marshal(payload)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		b, err := Marshal(payload)
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b))
	}
}

func TestMarshal_NFCNormalization(t *testing.T) {
	// "é" as a combining sequence (e + U+0301) normalizes to precomposed é.
	composed, err := Marshal("café")
	require.NoError(t, err)
	decomposed, err := Marshal("café")
	require.NoError(t, err)
	assert.Equal(t, string(composed), string(decomposed))
}

func TestMarshal_UTF16KeyOrdering(t *testing.T) {
	// U+1D306 encodes as a surrogate pair with high surrogate 0xD834, which
	// sorts BEFORE the BMP character U+FF01 under UTF-16 code units - the
	// opposite of code-point (UTF-8) order.
	got, err := Marshal(map[string]any{
		"\U0001D306": 1,
		"！":          2,
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001D306\":1,\"！\":2}", string(got))
}

func TestMarshal_UnsupportedType(t *testing.T) {
	_, err := Marshal(struct{}{})
	assert.Error(t, err)
}
