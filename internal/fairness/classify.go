package fairness

import "math"

// Classify maps a disparity point estimate and its confidence interval to
// a parity flag against the [cfg.Lower, cfg.Upper] band.
//
// The rules are a totally-ordered decision chain; order is load-bearing and
// every boundary is inclusive exactly as written:
//
//  1. Any of d, lo, hi non-finite                        -> N/A
//  2. LenientParity and Lower <= d <= Upper              -> Pass
//     (the interval is bypassed entirely)
//  3. Interval fully outside the band (hi < Lower or
//     lo > Upper)                                        -> Fail
//  4. Interval overlaps a band edge (lo < Lower < hi, or
//     lo < Upper < hi, or Lower <= lo <= Upper, or
//     Lower <= hi <= Upper)                              -> Borderline,
//     escalated to Fail when UsePointFallback is set, the interval is at
//     least WideCIThreshold wide, and d itself is outside the band
//  5. Otherwise                                          -> Pass
func Classify(d, lo, hi float64, cfg ThresholdConfig) ParityFlag {
	if !isFinite(d) || !isFinite(lo) || !isFinite(hi) {
		return ParityNA
	}

	inBand := cfg.Lower <= d && d <= cfg.Upper

	if cfg.LenientParity && inBand {
		return ParityPass
	}

	if hi < cfg.Lower || lo > cfg.Upper {
		return ParityFail
	}

	overlaps := (lo < cfg.Lower && cfg.Lower < hi) ||
		(lo < cfg.Upper && cfg.Upper < hi) ||
		(cfg.Lower <= lo && lo <= cfg.Upper) ||
		(cfg.Lower <= hi && hi <= cfg.Upper)
	if overlaps {
		if cfg.UsePointFallback && hi-lo >= cfg.WideCIThreshold && !inBand {
			return ParityFail
		}
		return ParityBorderline
	}

	return ParityPass
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
