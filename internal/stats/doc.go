// Package stats implements the interval estimators used by the fairness engine.
//
// Two families of estimators live here:
//
// Closed-form: the Wilson score interval for a binomial proportion, computed
// with an exact inverse normal CDF (Wichura's AS241 algorithm). The Wilson
// interval is well-behaved near rates of 0 and 1 and for small samples, which
// matters for under-recruited demographic groups.
//
// Resampling: a seeded parametric-binomial bootstrap for ratio and difference
// metrics between a group and a reference group. The resampler is purely
// functional over its explicit seed - identical seed and inputs produce
// bit-identical bounds, which is what makes audit runs reproducible.
//
// Degenerate inputs (zero trials, no finite draws) never panic; they collapse
// to NaN sentinels that callers propagate to the final result table.
package stats
