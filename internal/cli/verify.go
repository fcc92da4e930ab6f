package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/branchpoll/internal/store"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Database string
}

// VerifyResult reports the integrity of a poll's submission log.
type VerifyResult struct {
	PollID     string           `json:"poll_id"`
	Checked    int              `json:"checked"`
	Mismatches []store.Mismatch `json:"mismatches"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <poll-id>",
		Short: "Check stored submissions against their content ids",
		Long: `Recompute every submission id of a poll from its stored content and
report rows whose id no longer matches.

Exit codes:
  0 - All submissions intact
  1 - One or more submissions altered
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args[0], cmd)
		},
	}

	addDatabaseFlag(cmd, &opts.Database)
	return cmd
}

func runVerify(opts *VerifyOptions, pollID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	ctx := commandContext(cmd)
	_, st, err := openService(ctx, opts.Database, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := st.LoadPoll(ctx, pollID); err != nil {
		return outputServiceError(formatter, pollID, err)
	}

	checked, err := st.CountSubmissions(ctx, pollID)
	if err != nil {
		return outputCommandError(formatter, ErrCodeDatabase, err.Error())
	}
	mismatches, err := st.VerifySubmissions(ctx, pollID)
	if err != nil {
		return outputCommandError(formatter, ErrCodeDatabase, err.Error())
	}

	result := VerifyResult{PollID: pollID, Checked: checked, Mismatches: mismatches}
	if len(mismatches) > 0 {
		if formatter.Format == "json" {
			_ = formatter.Error(ErrCodeTampered, fmt.Sprintf("%d submission(s) altered", len(mismatches)), result)
		} else {
			fmt.Fprintf(formatter.Writer, "✗ %d of %d submission(s) altered\n", len(mismatches), checked)
			for _, m := range mismatches {
				who := "unreadable"
				if sub, err := st.ReadSubmission(ctx, m.StoredID); err == nil {
					who = sub.Participant.String()
				}
				fmt.Fprintf(formatter.Writer, "  seq %d (%s): stored %s, computed %s\n", m.Seq, who, m.StoredID, m.ComputedID)
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d submission(s) altered", len(mismatches)))
	}

	return formatter.Render(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %d submission(s) intact\n", checked)
	})
}
