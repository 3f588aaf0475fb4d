package fairness

import (
	"sort"

	"github.com/equienroll/equiaudit/internal/stats"
)

// Dataset is the typed-table boundary the engine consumes. Implementations
// must return fully-populated, already-typed columns; all cleaning and
// coercion happens upstream (see internal/table). The engine treats the
// dataset as an immutable snapshot for the duration of one audit.
type Dataset interface {
	// Len returns the number of rows.
	Len() int

	// CategoricalColumn returns the values and missingness mask of a group
	// column. Both slices have Len() entries.
	CategoricalColumn(name string) (values []string, missing []bool, err error)

	// OutcomeColumn returns the 0/1 outcome values, Len() entries.
	OutcomeColumn(name string) ([]int, error)
}

// Options configures one audit run.
type Options struct {
	// GroupCols are the demographic columns; more than one makes the
	// grouping intersectional. Must be non-empty.
	GroupCols []string

	// OutcomeCol is the 0/1 outcome column.
	OutcomeCol string

	// RefStrategy selects the baseline group; defaults to RefLargestN.
	RefStrategy RefStrategy

	// CustomRefValue is the exact group label for RefCustom.
	CustomRefValue string

	// Thresholds carries the fairness band, bootstrap and decision flags.
	Thresholds ThresholdConfig
}

// Seed-derivation domains for the two bootstrap metric streams. Distinct
// domains keep the ratio and difference simulations independent.
const (
	seedDomainRatio = "ratio"
	seedDomainDiff  = "diff"
)

// Audit computes the per-group fairness table for one dataset snapshot.
//
// A dataset that yields zero groups returns an empty (non-nil) table, not
// an error. Configuration problems - empty group columns, an unknown
// strategy, a custom reference that matches nothing - are fatal.
func Audit(ds Dataset, opts Options) (*ResultTable, error) {
	if len(opts.GroupCols) == 0 {
		return nil, &AuditError{Code: ErrCodeInvalidConfig, Message: "at least one group column is required"}
	}
	if opts.OutcomeCol == "" {
		return nil, &AuditError{Code: ErrCodeInvalidConfig, Message: "an outcome column is required"}
	}
	cfg := opts.Thresholds
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	strategy := opts.RefStrategy
	if strategy == "" {
		strategy = RefLargestN
	}

	groups, err := groupCounts(ds, opts.GroupCols, opts.OutcomeCol)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return &ResultTable{Rows: []Result{}, Lower: cfg.Lower, Upper: cfg.Upper}, nil
	}

	// Rates and Wilson intervals, in deterministic ascending key order.
	gstats := make([]GroupStat, len(groups))
	for i, g := range groups {
		rate, lo, hi := stats.RateAndCI(g.successes, g.n, cfg.Alpha)
		gstats[i] = GroupStat{
			Key:       g.key,
			N:         g.n,
			Successes: g.successes,
			Rate:      rate,
			RateLo:    lo,
			RateHi:    hi,
		}
	}

	ref, err := SelectReference(gstats, strategy, opts.CustomRefValue)
	if err != nil {
		return nil, err
	}

	rows := make([]Result, len(gstats))
	for i, g := range gstats {
		rows[i] = buildRow(g, ref, cfg)
	}

	return assemble(rows, ref, cfg), nil
}

// buildRow computes every metric family for one group against the
// reference. Bootstrap seeds derive from the run seed, the metric domain
// and the group label, so groups are independent and runs reproducible.
func buildRow(g, ref GroupStat, cfg ThresholdConfig) Result {
	label := g.Key.Label()

	ratioSeed := stats.DeriveSeed(cfg.Seed, seedDomainRatio, label)
	dispLo, dispHi := stats.NewResampler(ratioSeed, cfg.B, cfg.Alpha).
		CI(g.Successes, g.N, ref.Successes, ref.N, stats.MetricRatio)

	diffSeed := stats.DeriveSeed(cfg.Seed, seedDomainDiff, label)
	rdLo, rdHi := stats.NewResampler(diffSeed, cfg.B, cfg.Alpha).
		CI(g.Successes, g.N, ref.Successes, ref.N, stats.MetricDifference)

	disparity := DisparityRatio(g.Rate, ref.Rate)
	riskDiff := RiskDifference(g.Rate, ref.Rate)
	parityDiff := ParityDifference(ref.Rate, g.Rate)
	pdLo, pdHi := negateInterval(rdLo, rdHi)

	return Result{
		Group:       g.Key,
		Label:       label,
		N:           g.N,
		Successes:   g.Successes,
		IsReference: g.Key.Compare(ref.Key) == 0,

		Rate:   g.Rate,
		RateLo: g.RateLo,
		RateHi: g.RateHi,

		Disparity:   disparity,
		DisparityLo: dispLo,
		DisparityHi: dispHi,

		Parity: Classify(disparity, dispLo, dispHi, cfg),

		RiskDiff:   riskDiff,
		RiskDiffLo: rdLo,
		RiskDiffHi: rdHi,

		// Relative risk is the disparity ratio under its epidemiological
		// name; value and interval are shared by definition.
		RelativeRisk:   disparity,
		RelativeRiskLo: dispLo,
		RelativeRiskHi: dispHi,

		ParityDiff:   parityDiff,
		ParityDiffLo: pdLo,
		ParityDiffHi: pdHi,
	}
}

// assemble orders the rows - reference first, the rest ascending by key -
// and attaches the run metadata.
func assemble(rows []Result, ref GroupStat, cfg ThresholdConfig) *ResultTable {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].IsReference != rows[j].IsReference {
			return rows[i].IsReference
		}
		return rows[i].Group.Compare(rows[j].Group) < 0
	})

	return &ResultTable{
		Rows:      rows,
		Reference: ref.Key.Label(),
		Lower:     cfg.Lower,
		Upper:     cfg.Upper,
	}
}

// groupCount is one grouped tally prior to rate estimation.
type groupCount struct {
	key       GroupKey
	n         int
	successes int
}

// groupCounts partitions the dataset by the (possibly intersectional) group
// key and tallies trials and successes. Missing group values map to the
// MissingValue sentinel. The returned slice is sorted ascending by key.
func groupCounts(ds Dataset, groupCols []string, outcomeCol string) ([]groupCount, error) {
	outcome, err := ds.OutcomeColumn(outcomeCol)
	if err != nil {
		return nil, err
	}

	type colData struct {
		values  []string
		missing []bool
	}
	cols := make([]colData, len(groupCols))
	for i, name := range groupCols {
		values, missing, err := ds.CategoricalColumn(name)
		if err != nil {
			return nil, err
		}
		cols[i] = colData{values: values, missing: missing}
	}

	byLabel := make(map[string]*groupCount)
	for row := 0; row < ds.Len(); row++ {
		key := make(GroupKey, len(cols))
		for i, c := range cols {
			if c.missing[row] {
				key[i] = MissingValue
			} else {
				key[i] = c.values[row]
			}
		}

		label := key.Label()
		g, ok := byLabel[label]
		if !ok {
			g = &groupCount{key: key}
			byLabel[label] = g
		}
		g.n++
		g.successes += outcome[row]
	}

	out := make([]groupCount, 0, len(byLabel))
	for _, g := range byLabel {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key.Compare(out[j].key) < 0 })
	return out, nil
}
