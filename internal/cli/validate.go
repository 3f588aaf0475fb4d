package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/equienroll/equiaudit/internal/mapping"
)

// ValidationResult holds mapping validation results.
type ValidationResult struct {
	Valid   bool     `json:"valid"`
	Columns []string `json:"columns,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <mapping.yaml>",
		Short: "Validate a mapping document without running an audit",
		Long: `Validate a YAML mapping document against the mapping schema.

Checks the schema version, that every column uses exactly one transform
form, and that each form is well-formed. Faster than a full audit for
iterating on a mapping.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	doc, err := mapping.Load(path)
	if err != nil {
		if formatter.Format == "json" {
			_ = formatter.Success(ValidationResult{Valid: false, Error: err.Error()})
		} else {
			fmt.Fprintln(formatter.Writer, "✗ Mapping invalid")
			fmt.Fprintf(formatter.Writer, "  %v\n", err)
		}
		// Invalid documents = exit code 1 (validation failure)
		return WrapExitError(ExitFailure, "mapping validation failed", err)
	}

	columns := make([]string, 0, len(doc.Columns))
	for name := range doc.Columns {
		columns = append(columns, name)
	}
	sort.Strings(columns)

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Columns: columns})
	}

	fmt.Fprintf(formatter.Writer, "✓ Mapping valid (%d column(s))\n", len(columns))
	for _, name := range columns {
		formatter.VerboseLog("  %s", name)
	}
	return nil
}
