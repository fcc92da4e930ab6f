package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/branchpoll/internal/service"
	"github.com/roach88/branchpoll/internal/store"
)

// PublishOptions holds flags for the publish command.
type PublishOptions struct {
	*RootOptions
	Database string
}

// PublishResult lists the polls written by publish.
type PublishResult struct {
	Published []string `json:"published"`
}

// NewPublishCommand creates the publish command.
func NewPublishCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PublishOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "publish <defs-dir>",
		Short: "Validate and publish poll definitions",
		Long: `Load, validate and store every poll defined in a directory.

If any poll is invalid, none are written. Republishing an identical poll is a no-op; changing a
published poll is refused.

Example:
  branchpoll publish --db ./polls.db ./defs`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(opts, args[0], cmd)
		},
	}

	addDatabaseFlag(cmd, &opts.Database)
	return cmd
}

func runPublish(opts *PublishOptions, defsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := LoadPolls(defsDir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		code, msg := firstLoadError(loadErrors)
		return outputCommandError(formatter, code, msg)
	}

	if errs, _ := validatePolls(loadResult, formatter); len(errs) > 0 {
		return outputValidationErrors(formatter, errs, nil)
	}

	ctx := commandContext(cmd)
	svc, st, err := openService(ctx, opts.Database, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	result := PublishResult{Published: make([]string, 0, len(loadResult.Polls))}
	for _, p := range loadResult.Polls {
		if err := svc.Publish(ctx, p); err != nil {
			if errors.Is(err, store.ErrPollExists) {
				_ = formatter.Error(ErrCodeDuplicate, err.Error(), nil)
				return WrapExitError(ExitFailure, "publish refused", err)
			}
			if service.IsInvalidPoll(err) {
				_ = formatter.Error(ErrCodeInvalidPolls, err.Error(), nil)
				return WrapExitError(ExitFailure, "publish refused", err)
			}
			return outputCommandError(formatter, ErrCodeDatabase, err.Error())
		}
		formatter.VerboseLog("Published poll: %s", p.ID)
		result.Published = append(result.Published, p.ID)
	}

	return formatter.Render(result, func(w io.Writer) {
		for _, id := range result.Published {
			fmt.Fprintf(w, "✓ published %s\n", id)
		}
	})
}
