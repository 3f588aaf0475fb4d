package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/equienroll/equiaudit/internal/trail"
)

// VerifyResult holds trail verification results.
type VerifyResult struct {
	Intact bool   `json:"intact"`
	Events int    `json:"events"`
	Seq    int64  `json:"seq,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <trail.db>",
		Short: "Verify the audit-trail hash chain",
		Long: `Verify the integrity of an audit-trail database.

Recomputes every event hash and chain link. Any retroactive edit to a
recorded event, or a removed event, breaks verification from that point
forward.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runVerify(opts *RootOptions, dbPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	tr, err := trail.Open(dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open audit trail", err)
	}
	defer tr.Close()

	n, err := tr.Verify(ctx)
	if err != nil {
		var ve *trail.VerifyError
		if errors.As(err, &ve) {
			if formatter.Format == "json" {
				_ = formatter.Success(VerifyResult{Intact: false, Seq: ve.Seq, Reason: ve.Reason})
			} else {
				fmt.Fprintf(formatter.Writer, "✗ Trail broken at seq %d\n", ve.Seq)
				fmt.Fprintf(formatter.Writer, "  %s\n", ve.Reason)
			}
			// Broken chains = exit code 1 (verification failure)
			return WrapExitError(ExitFailure, "trail verification failed", err)
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to verify audit trail", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(VerifyResult{Intact: true, Events: n})
	}
	fmt.Fprintf(formatter.Writer, "✓ Chain intact (%d event(s))\n", n)
	return nil
}
