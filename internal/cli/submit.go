package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/branchpoll/internal/harness"
	"github.com/roach88/branchpoll/internal/ir"
)

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	Database string
	Answers  string
	User     string
	Session  string
}

// SubmitResult is the outcome of an accepted submission.
type SubmitResult struct {
	SubmissionID string `json:"submission_id"`
	Participant  string `json:"participant"`
	Seq          int64  `json:"seq"`
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit <poll-id>",
		Short: "Submit a complete answer set",
		Long: `Validate and record one participant's answers to a published poll.

Without --user the submission is anonymous; a session id is issued unless
--session is given.

Exit codes:
  0 - Submission accepted
  1 - Submission rejected (validation or participation policy)
  2 - Command error

Example:
  branchpoll submit car --db ./polls.db --user alice \
    --answers '{"q1":{"choice_id":"q1_c1"},"q2":{"text":"Toyota"}}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(opts, args[0], cmd)
		},
	}

	addDatabaseFlag(cmd, &opts.Database)
	cmd.Flags().StringVar(&opts.Answers, "answers", "", "answers as a JSON object (required)")
	cmd.Flags().StringVar(&opts.User, "user", "", "authenticated user id")
	cmd.Flags().StringVar(&opts.Session, "session", "", "anonymous session id")
	cmd.MarkFlagsMutuallyExclusive("user", "session")
	_ = cmd.MarkFlagRequired("answers")

	return cmd
}

func runSubmit(opts *SubmitOptions, pollID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	answers, err := ir.ParseAnswers([]byte(opts.Answers))
	if err != nil {
		return outputCommandError(formatter, ErrCodeBadArgument, fmt.Sprintf("invalid --answers: %v", err))
	}

	ctx := commandContext(cmd)
	svc, st, err := openService(ctx, opts.Database, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	participant := ir.ParticipantRef{UserID: opts.User, SessionID: opts.Session}
	sub, err := svc.SubmitAnswers(ctx, pollID, participant, answers)
	if err != nil {
		if code := harness.ErrorCode(err); code != "" {
			_ = formatter.Error(code, err.Error(), nil)
			return WrapExitError(ExitFailure, "submission rejected", err)
		}
		return outputServiceError(formatter, pollID, err)
	}

	result := SubmitResult{
		SubmissionID: sub.ID,
		Participant:  sub.Participant.String(),
		Seq:          sub.Seq,
	}
	return formatter.Render(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ accepted %s (seq %d, %s)\n", result.SubmissionID, result.Seq, result.Participant)
	})
}
