package cli

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/equienroll/equiaudit/internal/canon"
	"github.com/equienroll/equiaudit/internal/export"
	"github.com/equienroll/equiaudit/internal/fairness"
	"github.com/equienroll/equiaudit/internal/mapping"
	"github.com/equienroll/equiaudit/internal/table"
	"github.com/equienroll/equiaudit/internal/trail"
)

// AuditOptions holds flags for the audit command.
type AuditOptions struct {
	GroupCols  []string
	OutcomeCol string

	RefStrategy string
	RefValue    string

	Lower         float64
	Upper         float64
	Bootstrap     int
	Seed          uint64
	Alpha         float64
	PointFallback bool
	WideCI        float64
	Lenient       bool

	MappingPath string
	DBPath      string
	ExportDir   string
	StudyID     string
	DataCut     string
}

// AuditReport is the JSON success payload of the audit command.
type AuditReport struct {
	Reference   string            `json:"reference"`
	Lower       float64           `json:"lower"`
	Upper       float64           `json:"upper"`
	CleanReport table.CleanReport `json:"clean_report"`
	Rows        []any             `json:"rows"`
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuditOptions{}

	cmd := &cobra.Command{
		Use:   "audit <recruitment.csv>",
		Short: "Audit recruitment outcomes for demographic parity",
		Long: `Audit a recruitment CSV for demographic parity.

Rows are grouped by the --group columns (multiple columns form
intersectional groups), per-group rates get Wilson confidence intervals,
disparity and risk-difference intervals come from a seeded parametric
bootstrap, and each group is classified Pass/Borderline/Fail against the
fairness band.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(rootOpts, opts, args[0], cmd)
		},
	}

	defaults := fairness.Defaults()

	cmd.Flags().StringSliceVar(&opts.GroupCols, "group", nil, "demographic column(s) to group by (required)")
	cmd.Flags().StringVar(&opts.OutcomeCol, "outcome", "", "0/1 outcome column (required)")
	_ = cmd.MarkFlagRequired("group")
	_ = cmd.MarkFlagRequired("outcome")

	cmd.Flags().StringVar(&opts.RefStrategy, "ref-strategy", string(fairness.RefLargestN), "reference selection: largest_n|max_rate|min_rate|custom")
	cmd.Flags().StringVar(&opts.RefValue, "ref-value", "", "exact group label for --ref-strategy=custom")

	cmd.Flags().Float64Var(&opts.Lower, "lower", defaults.Lower, "lower disparity threshold")
	cmd.Flags().Float64Var(&opts.Upper, "upper", defaults.Upper, "upper disparity threshold")
	cmd.Flags().IntVar(&opts.Bootstrap, "bootstrap", defaults.B, "bootstrap repetitions")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", defaults.Seed, "base seed for the bootstrap generators")
	cmd.Flags().Float64Var(&opts.Alpha, "alpha", defaults.Alpha, "two-sided significance level for all intervals")
	cmd.Flags().BoolVar(&opts.PointFallback, "point-fallback", defaults.UsePointFallback, "escalate Borderline to Fail when the interval is wide and the point estimate is outside the band")
	cmd.Flags().Float64Var(&opts.WideCI, "wide-ci", defaults.WideCIThreshold, "interval width considered wide for the point fallback")
	cmd.Flags().BoolVar(&opts.Lenient, "lenient", defaults.LenientParity, "pass any group whose point estimate is inside the band")

	cmd.Flags().StringVar(&opts.MappingPath, "mapping", "", "YAML mapping document applied to the CSV before auditing")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "audit-trail SQLite database (events recorded when set)")
	cmd.Flags().StringVar(&opts.ExportDir, "export", "", "directory for the result packet and transparency card")
	cmd.Flags().StringVar(&opts.StudyID, "study", "", "study identifier stamped on exports")
	cmd.Flags().StringVar(&opts.DataCut, "data-cut", "", "data-cut label stamped on exports")

	return cmd
}

func runAudit(rootOpts *RootOptions, opts *AuditOptions, csvPath string, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if rootOpts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)

	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	tbl, report, err := loadDataset(csvPath, opts, logger)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load dataset", err)
	}
	logger.Debug("dataset ready", "rows", report.Rows, "dropped", report.DroppedRows, "coerced", report.CoercedTokens)

	var tr *trail.Trail
	if opts.DBPath != "" {
		tr, err = trail.Open(opts.DBPath)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open audit trail", err)
		}
		defer func() {
			if closeErr := tr.Close(); closeErr != nil {
				logger.Error("error closing audit trail", "error", closeErr)
			}
		}()
	}

	builder := export.NewBuilder(export.Context{
		StudyID: opts.StudyID,
		DataCut: opts.DataCut,
		OutDir:  opts.ExportDir,
	}, trailRecorder(tr))

	if tr != nil {
		payload, err := ingestPayload(csvPath, report)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to encode ingest record", err)
		}
		_, err = tr.Append(ctx, trail.Event{
			RunID:      builder.RunID(),
			Actor:      "system",
			Action:     "ingest",
			RecordType: "dataset",
			RecordID:   filepath.Base(csvPath),
			Payload:    payload,
		})
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to record ingest event", err)
		}
	}

	logger.Info("auditing", "groups", opts.GroupCols, "outcome", opts.OutcomeCol, "strategy", opts.RefStrategy)
	result, err := fairness.Audit(tbl, fairness.Options{
		GroupCols:      opts.GroupCols,
		OutcomeCol:     opts.OutcomeCol,
		RefStrategy:    fairness.RefStrategy(opts.RefStrategy),
		CustomRefValue: opts.RefValue,
		Thresholds: fairness.ThresholdConfig{
			Lower:            opts.Lower,
			Upper:            opts.Upper,
			B:                opts.Bootstrap,
			Seed:             opts.Seed,
			UsePointFallback: opts.PointFallback,
			WideCIThreshold:  opts.WideCI,
			LenientParity:    opts.Lenient,
			Alpha:            opts.Alpha,
		},
	})
	if err != nil {
		return outputAuditError(formatter, err)
	}
	logger.Info("audit complete", "groups", len(result.Rows), "reference", result.Reference)

	if tr != nil {
		digest, err := resultDigest(result, opts)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to digest results", err)
		}
		_, err = tr.Append(ctx, trail.Event{
			RunID:      builder.RunID(),
			Actor:      "system",
			Action:     "audit",
			RecordType: "result_table",
			RecordID:   result.Reference,
			Payload:    digest,
		})
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to record audit event", err)
		}
	}

	if opts.ExportDir != "" {
		packetPath, err := builder.ResultPacket(ctx, result, report)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to export result packet", err)
		}
		cardPath, err := builder.TransparencyCard(ctx)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to export transparency card", err)
		}
		logger.Info("exported", "packet", packetPath, "card", cardPath)
	}

	return outputAuditResult(formatter, result, report)
}

// loadDataset reads the CSV, applies the optional mapping document and
// coerces the outcome column to 0/1.
func loadDataset(csvPath string, opts *AuditOptions, logger *slog.Logger) (*table.Table, table.CleanReport, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, table.CleanReport{}, err
	}
	defer f.Close()

	tbl, err := table.ReadCSV(f)
	if err != nil {
		return nil, table.CleanReport{}, fmt.Errorf("reading %s: %w", csvPath, err)
	}
	logger.Debug("csv loaded", "rows", tbl.Len(), "columns", len(tbl.Columns()))

	if opts.MappingPath != "" {
		doc, err := mapping.Load(opts.MappingPath)
		if err != nil {
			return nil, table.CleanReport{}, err
		}
		tbl, err = doc.Apply(tbl)
		if err != nil {
			return nil, table.CleanReport{}, fmt.Errorf("applying mapping: %w", err)
		}
		logger.Debug("mapping applied", "columns", len(tbl.Columns()))
	}

	return table.CoerceOutcome(tbl, opts.OutcomeCol)
}

// trailRecorder adapts a possibly-nil trail to the export recorder
// interface without wrapping nil in a non-nil interface value.
func trailRecorder(tr *trail.Trail) export.Recorder {
	if tr == nil {
		return nil
	}
	return tr
}

// ingestPayload is the canonical record of what cleaning did to the input.
func ingestPayload(csvPath string, report table.CleanReport) (string, error) {
	out, err := canon.Marshal(map[string]any{
		"source":         filepath.Base(csvPath),
		"rows":           report.Rows,
		"dropped_rows":   report.DroppedRows,
		"coerced_tokens": report.CoercedTokens,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// resultDigest hashes the canonical result rows and run config for the
// trail.
func resultDigest(result *fairness.ResultTable, opts *AuditOptions) (string, error) {
	canonical, err := canon.Marshal(map[string]any{
		"reference": result.Reference,
		"rows":      export.Rows(result),
		"config": map[string]any{
			"strategy":  opts.RefStrategy,
			"lower":     opts.Lower,
			"upper":     opts.Upper,
			"bootstrap": opts.Bootstrap,
			"seed":      int64(opts.Seed),
			"alpha":     opts.Alpha,
		},
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	out, err := canon.Marshal(map[string]any{"sha256": hex.EncodeToString(sum[:])})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// outputAuditError maps engine errors to CLI output and exit codes.
func outputAuditError(formatter *OutputFormatter, err error) error {
	code := ErrCodeGeneric
	var ae *fairness.AuditError
	if errors.As(err, &ae) {
		code = string(ae.Code)
	}
	_ = formatter.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, "audit failed", err)
}

// outputAuditResult renders the result table in the configured format.
func outputAuditResult(formatter *OutputFormatter, result *fairness.ResultTable, report table.CleanReport) error {
	if formatter.Format == "json" {
		return formatter.Success(AuditReport{
			Reference:   result.Reference,
			Lower:       result.Lower,
			Upper:       result.Upper,
			CleanReport: report,
			Rows:        export.Rows(result),
		})
	}

	w := formatter.Writer
	if len(result.Rows) == 0 {
		fmt.Fprintln(w, "No groups found in input.")
		return nil
	}

	fmt.Fprintf(w, "Reference: %s  Band: [%s, %s]\n", result.Reference, fmtRate(result.Lower), fmtRate(result.Upper))
	if report.DroppedRows > 0 {
		fmt.Fprintf(w, "Dropped %d row(s) with uncoercible outcomes.\n", report.DroppedRows)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tN\tSUCCESSES\tRATE\tRATE CI\tDISPARITY\tDISPARITY CI\tFLAG")
	for _, row := range result.Rows {
		label := row.Label
		if row.IsReference {
			label += " *"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t[%s, %s]\t%s\t[%s, %s]\t%s\n",
			label, row.N, row.Successes,
			fmtRate(row.Rate), fmtRate(row.RateLo), fmtRate(row.RateHi),
			fmtRate(row.Disparity), fmtRate(row.DisparityLo), fmtRate(row.DisparityHi),
			row.Parity,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w, "\n* reference group")
	return nil
}

// fmtRate renders a metric value, with "n/a" for undefined ones.
func fmtRate(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "n/a"
	}
	return strconv.FormatFloat(f, 'f', 4, 64)
}
