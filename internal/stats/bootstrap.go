package stats

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand/v2"
	"slices"
)

// Seed is an explicit 128-bit generator seed. Seeds are always passed as
// values - there is no package-level generator state anywhere in the engine,
// so concurrent audit runs never contend on shared randomness.
type Seed struct {
	Hi uint64
	Lo uint64
}

// Domain prefix for seed derivation. The null-separated layout follows the
// same domain-separation scheme the audit trail uses for hashing.
const seedDomain = "equiaudit/seed/v1"

// DeriveSeed derives an independent child seed from a base seed and a list
// of labels (typically a metric name and a group label). Derivation is
// SHA-256 based: distinct label paths yield statistically independent
// streams, and the same path always yields the same stream.
func DeriveSeed(base uint64, labels ...string) Seed {
	h := sha256.New()
	h.Write([]byte(seedDomain))
	h.Write([]byte{0x00})

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], base)
	h.Write(buf[:])

	for _, l := range labels {
		h.Write([]byte{0x00})
		h.Write([]byte(l))
	}

	sum := h.Sum(nil)
	return Seed{
		Hi: binary.BigEndian.Uint64(sum[0:8]),
		Lo: binary.BigEndian.Uint64(sum[8:16]),
	}
}

// BootstrapMetric selects the quantity computed per bootstrap draw.
type BootstrapMetric int

const (
	// MetricRatio computes rate_g / rate_ref (disparity / relative risk).
	MetricRatio BootstrapMetric = iota
	// MetricDifference computes rate_g - rate_ref (risk difference).
	MetricDifference
)

// Resampler produces bootstrap confidence intervals via seeded
// parametric-binomial simulation. Each Resampler owns its generator;
// construct one per (group, metric) with an independently derived seed.
type Resampler struct {
	// B is the number of bootstrap repetitions. Must be positive.
	B int

	// Alpha is the two-sided significance level (0.05 gives 95% bounds).
	Alpha float64

	rng *rand.Rand
}

// NewResampler creates a resampler with B repetitions at the given alpha,
// seeded deterministically from seed.
func NewResampler(seed Seed, b int, alpha float64) *Resampler {
	return &Resampler{
		B:     b,
		Alpha: alpha,
		rng:   rand.New(rand.NewPCG(seed.Hi, seed.Lo)),
	}
}

// CI simulates the metric's empirical distribution and returns its
// [alpha/2, 1-alpha/2] quantiles.
//
// Per draw: k_g' ~ Binomial(n_g, k_g/n_g) and k_ref' ~ Binomial(n_ref,
// k_ref/n_ref) are converted to Wilson-center-stabilized rates before the
// ratio or difference is taken. Non-finite draws (0/0 ratios) are discarded.
//
// Returns (NaN, NaN) without consuming any randomness when either
// denominator is empty, and (NaN, NaN) when no finite draws remain.
func (r *Resampler) CI(kg, ng, kref, nref int, metric BootstrapMetric) (lo, hi float64) {
	if ng <= 0 || nref <= 0 {
		return math.NaN(), math.NaN()
	}

	z := zCritical(r.Alpha)
	pg := float64(kg) / float64(ng)
	pref := float64(kref) / float64(nref)

	draws := make([]float64, 0, r.B)
	for b := 0; b < r.B; b++ {
		sg := wilsonCenter(r.binomial(ng, pg), ng, z)
		sr := wilsonCenter(r.binomial(nref, pref), nref, z)

		var v float64
		switch metric {
		case MetricDifference:
			v = sg - sr
		default:
			v = sg / sr
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		draws = append(draws, v)
	}

	if len(draws) == 0 {
		return math.NaN(), math.NaN()
	}

	slices.Sort(draws)
	return percentile(draws, r.Alpha/2), percentile(draws, 1-r.Alpha/2)
}

// binomial draws from Binomial(n, p) by counting Bernoulli successes.
// p is clamped to [0, 1] before sampling. Linear in n, which is fine for
// recruitment-sized cohorts; exactness and determinism matter more here
// than sampling speed.
func (r *Resampler) binomial(n int, p float64) int {
	if p <= 0 {
		return 0
	}
	if p >= 1 {
		return n
	}
	k := 0
	for i := 0; i < n; i++ {
		if r.rng.Float64() < p {
			k++
		}
	}
	return k
}

// percentile returns the q-th empirical quantile of sorted (ascending)
// using linear interpolation between closest ranks.
func percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}

	pos := q * float64(n-1)
	i := int(math.Floor(pos))
	if i >= n-1 {
		return sorted[n-1]
	}
	if i < 0 {
		return sorted[0]
	}
	frac := pos - float64(i)
	return sorted[i] + frac*(sorted[i+1]-sorted[i])
}
