package fairness

import "math"

// RefStrategy selects how the baseline group is chosen.
type RefStrategy string

const (
	// RefLargestN picks the group with the most trials; ties break to the
	// higher rate, then to the lexicographically smallest key.
	RefLargestN RefStrategy = "largest_n"

	// RefMaxRate picks the highest rate; ties break to the larger n, then
	// to the lexicographically smallest key.
	RefMaxRate RefStrategy = "max_rate"

	// RefMinRate picks the lowest rate; ties break like RefMaxRate.
	RefMinRate RefStrategy = "min_rate"

	// RefCustom matches an explicit group label exactly.
	RefCustom RefStrategy = "custom"
)

// SelectReference picks the baseline group from stats according to the
// strategy. It never mutates stats. Selection is fully deterministic: every
// comparison chain ends in the lexicographic key order.
//
// Fatal errors: empty stats (EMPTY_INPUT), unknown strategy
// (INVALID_STRATEGY), or a custom value matching no group label
// (REFERENCE_NOT_FOUND).
func SelectReference(stats []GroupStat, strategy RefStrategy, customValue string) (GroupStat, error) {
	if len(stats) == 0 {
		return GroupStat{}, &AuditError{Code: ErrCodeEmptyInput, Message: "no groups to select a reference from"}
	}

	switch strategy {
	case RefCustom:
		for _, s := range stats {
			if s.Key.Label() == customValue {
				return s, nil
			}
		}
		return GroupStat{}, newReferenceNotFound(customValue)

	case RefLargestN:
		return pick(stats, func(a, b GroupStat) bool {
			if a.N != b.N {
				return a.N > b.N
			}
			if c := compareRate(a.Rate, b.Rate); c != 0 {
				return c > 0
			}
			return a.Key.Compare(b.Key) < 0
		}), nil

	case RefMaxRate:
		return pick(stats, func(a, b GroupStat) bool {
			if c := compareRate(a.Rate, b.Rate); c != 0 {
				return c > 0
			}
			if a.N != b.N {
				return a.N > b.N
			}
			return a.Key.Compare(b.Key) < 0
		}), nil

	case RefMinRate:
		return pick(stats, func(a, b GroupStat) bool {
			// A defined rate always beats an empty group, even when
			// minimizing - NaN is "undefined", not "smallest".
			aNaN, bNaN := math.IsNaN(a.Rate), math.IsNaN(b.Rate)
			if aNaN != bNaN {
				return !aNaN
			}
			if !aNaN && a.Rate != b.Rate {
				return a.Rate < b.Rate
			}
			if a.N != b.N {
				return a.N > b.N
			}
			return a.Key.Compare(b.Key) < 0
		}), nil

	default:
		return GroupStat{}, newInvalidStrategy(string(strategy))
	}
}

// pick returns the element that wins every pairwise better() comparison.
func pick(stats []GroupStat, better func(a, b GroupStat) bool) GroupStat {
	best := stats[0]
	for _, s := range stats[1:] {
		if better(s, best) {
			best = s
		}
	}
	return best
}

// compareRate orders rates treating NaN as worse than any number, so an
// empty group can never win a rate-based selection (in either direction)
// unless all groups are empty.
func compareRate(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
