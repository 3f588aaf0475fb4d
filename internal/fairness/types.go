package fairness

import "strings"

// MissingValue is the sentinel categorical value used when a group column
// is empty for a row. It keeps missing demographics visible as their own
// group instead of silently dropping rows.
const MissingValue = "〈missing〉"

// groupSeparator joins composite key parts for display.
const groupSeparator = " × "

// GroupKey is the composite categorical identity of a demographic group,
// one value per group column (e.g. race, or race and sex).
type GroupKey []string

// Label returns the joined display form of the key.
func (k GroupKey) Label() string {
	return strings.Join(k, groupSeparator)
}

// Compare orders keys lexicographically, element by element. Used for the
// deterministic result ordering and for reference tie-breaks.
func (k GroupKey) Compare(other GroupKey) int {
	for i := 0; i < len(k) && i < len(other); i++ {
		if c := strings.Compare(k[i], other[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(k) < len(other):
		return -1
	case len(k) > len(other):
		return 1
	default:
		return 0
	}
}

// GroupStat holds the per-group counts, rate and Wilson interval computed
// once per audit from the input snapshot. Rate fields are NaN when N is 0.
type GroupStat struct {
	Key       GroupKey
	N         int
	Successes int
	Rate      float64
	RateLo    float64
	RateHi    float64
}

// ParityFlag is the terminal classification of a group's disparity.
type ParityFlag string

const (
	ParityPass       ParityFlag = "Pass"
	ParityBorderline ParityFlag = "Borderline"
	ParityFail       ParityFlag = "Fail"
	// ParityNA marks undefined input (NaN disparity or bounds).
	ParityNA ParityFlag = "N/A"
)

// ThresholdConfig carries the fairness band and the decision-mode flags of
// one audit run. The zero value is not valid; use Defaults as a base.
type ThresholdConfig struct {
	// Lower and Upper bound the acceptable disparity band. Lower must be
	// strictly less than Upper.
	Lower float64
	Upper float64

	// B is the bootstrap repetition count. Must be positive.
	B int

	// Seed is the base seed for the run; per-group generator seeds are
	// derived from it.
	Seed uint64

	// UsePointFallback escalates Borderline to Fail when the interval is
	// wide and the point estimate sits outside the band.
	UsePointFallback bool

	// WideCIThreshold is the minimum interval width for the fallback.
	WideCIThreshold float64

	// LenientParity passes any group whose point estimate is in the band,
	// bypassing the interval entirely.
	LenientParity bool

	// Alpha is the two-sided significance level for every interval.
	Alpha float64
}

// Defaults mirror the thresholds used by recruitment-equity review in
// practice: the four-fifths band with a 95% confidence level.
func Defaults() ThresholdConfig {
	return ThresholdConfig{
		Lower:            0.8,
		Upper:            1.25,
		B:                1000,
		Seed:             123,
		UsePointFallback: true,
		WideCIThreshold:  0.5,
		Alpha:            0.05,
	}
}

// validate checks invariants and fills the alpha default.
func (c *ThresholdConfig) validate() error {
	if c.Alpha == 0 {
		c.Alpha = 0.05
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return &AuditError{Code: ErrCodeInvalidConfig, Message: "alpha must be in (0, 1)"}
	}
	if c.Lower >= c.Upper {
		return &AuditError{Code: ErrCodeInvalidConfig, Message: "lower threshold must be below upper threshold"}
	}
	if c.B <= 0 {
		return &AuditError{Code: ErrCodeInvalidConfig, Message: "bootstrap repetitions must be positive"}
	}
	if c.WideCIThreshold < 0 {
		return &AuditError{Code: ErrCodeInvalidConfig, Message: "wide-CI threshold must be non-negative"}
	}
	return nil
}

// Result is one fully-annotated row of the audit output.
//
// RelativeRisk is the disparity ratio under its epidemiological name; the
// value and interval are identical to Disparity by definition. ParityDiff
// is the negated risk difference with the correspondingly flipped interval.
type Result struct {
	Group GroupKey `json:"-"`

	Label       string `json:"group_label"`
	N           int    `json:"n"`
	Successes   int    `json:"successes"`
	IsReference bool   `json:"is_reference"`

	Rate   float64 `json:"rate"`
	RateLo float64 `json:"rate_ci_low"`
	RateHi float64 `json:"rate_ci_high"`

	Disparity   float64 `json:"disparity"`
	DisparityLo float64 `json:"disparity_ci_low"`
	DisparityHi float64 `json:"disparity_ci_high"`

	Parity ParityFlag `json:"parity_flag"`

	RiskDiff   float64 `json:"risk_diff"`
	RiskDiffLo float64 `json:"risk_diff_ci_low"`
	RiskDiffHi float64 `json:"risk_diff_ci_high"`

	RelativeRisk   float64 `json:"relative_risk"`
	RelativeRiskLo float64 `json:"relative_risk_ci_low"`
	RelativeRiskHi float64 `json:"relative_risk_ci_high"`

	ParityDiff   float64 `json:"parity_diff"`
	ParityDiffLo float64 `json:"parity_diff_ci_low"`
	ParityDiffHi float64 `json:"parity_diff_ci_high"`
}

// ResultTable is the ordered audit output: the reference row first, then
// the remaining groups in ascending key order.
type ResultTable struct {
	// Rows holds one entry per group. Empty (not nil) when the input had
	// no rows after grouping.
	Rows []Result

	// Reference is the selected reference group label, empty for an empty
	// table.
	Reference string

	// Lower and Upper echo the fairness band the flags were decided
	// against.
	Lower float64
	Upper float64
}
