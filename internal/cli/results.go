package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/branchpoll/internal/ir"
	"github.com/roach88/branchpoll/internal/service"
)

// ResultsOptions holds flags for the results command.
type ResultsOptions struct {
	*RootOptions
	Database   string
	SampleSize int
	AfterClose bool
}

// NewResultsCommand creates the results command.
func NewResultsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResultsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "results <poll-id>",
		Short: "Aggregate the submissions of a poll",
		Long: `Recompute per-question results from the full submission log.

Choice questions report a count and percentage per choice; text questions
report the response count and the earliest answers as samples.

Closed or expired polls are refused unless --after-close is given.

Example:
  branchpoll results car --db ./polls.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResults(opts, args[0], cmd)
		},
	}

	addDatabaseFlag(cmd, &opts.Database)
	cmd.Flags().IntVar(&opts.SampleSize, "samples", 0, "free-text samples per question (0 = default)")
	cmd.Flags().BoolVar(&opts.AfterClose, "after-close", false, "report closed or expired polls")

	return cmd
}

func runResults(opts *ResultsOptions, pollID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	ctx := commandContext(cmd)
	svc, st, err := openService(ctx, opts.Database, formatter,
		service.WithSampleSize(opts.SampleSize),
		service.WithResultsAfterClose(opts.AfterClose),
	)
	if err != nil {
		return err
	}
	defer st.Close()

	results, err := svc.GetResults(ctx, pollID)
	if err != nil {
		return outputServiceError(formatter, pollID, err)
	}

	return formatter.Render(results, func(w io.Writer) {
		for _, r := range results {
			writeResult(w, r)
		}
	})
}

func writeResult(w io.Writer, r ir.QuestionResult) {
	fmt.Fprintf(w, "%s  %s (%d responses)\n", r.QuestionID, r.QuestionText, r.TotalResponses)
	if r.QuestionType.IsChoice() {
		for _, c := range r.Tally {
			fmt.Fprintf(w, "    %-20s %4d  %5.1f%%\n", c.Text, c.Count, r.Percent(c.Count))
		}
		return
	}
	for _, s := range r.Samples {
		fmt.Fprintf(w, "    %q\n", s)
	}
}
