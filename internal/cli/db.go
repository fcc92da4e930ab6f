package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/branchpoll/internal/service"
	"github.com/roach88/branchpoll/internal/store"
)

// Environment variables read when the matching flag is not given.
const (
	EnvDatabase  = "BRANCHPOLL_DB"
	EnvAddr      = "BRANCHPOLL_ADDR"
	EnvJWTSecret = "BRANCHPOLL_JWT_SECRET"
)

// addDatabaseFlag registers --db, defaulting to $BRANCHPOLL_DB.
func addDatabaseFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "db", os.Getenv(EnvDatabase), "path to SQLite database (or $"+EnvDatabase+")")
}

// openService opens the store at path and builds a service over it.
// The caller closes the returned store.
func openService(ctx context.Context, path string, formatter *OutputFormatter, opts ...service.Option) (*service.Service, *store.Store, error) {
	if path == "" {
		return nil, nil, outputCommandError(formatter, ErrCodeBadArgument, "--db is required (or set $"+EnvDatabase+")")
	}

	formatter.VerboseLog("Opening database: %s", path)
	st, err := store.Open(path)
	if err != nil {
		return nil, nil, outputCommandError(formatter, ErrCodeDatabase, err.Error())
	}

	opts = append([]service.Option{service.WithLogger(formatter.Logger())}, opts...)
	svc, err := service.New(ctx, st, opts...)
	if err != nil {
		_ = st.Close()
		return nil, nil, outputCommandError(formatter, ErrCodeDatabase, err.Error())
	}
	return svc, st, nil
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// outputServiceError reports a service failure. Unknown polls are command
// errors; anything else is a failure of the operation itself.
func outputServiceError(formatter *OutputFormatter, pollID string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return outputCommandError(formatter, ErrCodeUnknownPoll, "poll not published: "+pollID)
	}
	_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitFailure, "operation failed", err)
}
