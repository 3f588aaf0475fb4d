// Package fairness implements the fairness metrics and disparity
// classification engine.
//
// An audit takes a typed dataset, partitions it into demographic groups
// (optionally intersectional), and produces one fully-annotated row per
// group: outcome rate with Wilson interval, disparity ratio and risk
// difference with bootstrap intervals, the derived relative-risk and
// parity-difference views, and a Pass/Borderline/Fail/N-A parity flag
// against a configured fairness band.
//
// DETERMINISM:
//
// Every function here is pure over its explicit inputs. The only source of
// randomness is the bootstrap, and its generator is seeded per (group,
// metric) from the run's base seed - the same dataset, configuration and
// seed always produce a bit-identical result table. There is no shared
// mutable state, so concurrent audit invocations need no coordination.
//
// DEGENERATE INPUT:
//
// Arithmetic never raises. Empty groups, zero reference rates and exhausted
// bootstrap draws all collapse to NaN, which the classifier maps to the
// terminal N/A flag. The only fatal conditions are configuration errors:
// an unknown reference strategy, or a custom reference value that does not
// exist in the data.
package fairness
