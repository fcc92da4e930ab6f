package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/branchpoll/internal/ir"
)

// QuestionsOptions holds flags for the questions command.
type QuestionsOptions struct {
	*RootOptions
	Database string
	Answers  string // JSON answers object
}

// NewQuestionsCommand creates the questions command.
func NewQuestionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QuestionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "questions <poll-id>",
		Short: "List the questions shown for a partial answer set",
		Long: `Print the active questions of a published poll, in position order,
given the answers so far.

Example:
  branchpoll questions car --db ./polls.db
  branchpoll questions car --db ./polls.db --answers '{"q1":{"choice_id":"q1_c1"}}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuestions(opts, args[0], cmd)
		},
	}

	addDatabaseFlag(cmd, &opts.Database)
	cmd.Flags().StringVar(&opts.Answers, "answers", "{}", "answers so far as a JSON object")

	return cmd
}

func runQuestions(opts *QuestionsOptions, pollID string, cmd *cobra.Command) error {
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

	questions, err := svc.GetActiveQuestions(ctx, pollID, answers)
	if err != nil {
		return outputServiceError(formatter, pollID, err)
	}

	return formatter.Render(questions, func(w io.Writer) {
		for _, q := range questions {
			writeQuestion(w, q)
		}
	})
}

func writeQuestion(w io.Writer, q ir.Question) {
	marker := ""
	if q.IsRequired {
		marker = " *"
	}
	fmt.Fprintf(w, "%s [%s]%s %s\n", q.ID, q.Type, marker, q.Text)
	for _, c := range q.Choices {
		fmt.Fprintf(w, "    %s  %s\n", c.ID, c.Text)
	}
}
