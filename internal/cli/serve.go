package cli

import (
	"cmp"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/roach88/branchpoll/internal/httpapi"
	"github.com/roach88/branchpoll/internal/service"
)

// DefaultAddr is the listen address when neither --addr nor $BRANCHPOLL_ADDR
// is set.
const DefaultAddr = ":8080"

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Database     string
	Addr         string
	JWTSecret    string
	Rate         float64 // submissions per second per participant, 0 = unlimited
	Burst        int
	AllowOrigins []string
	Proxies      []string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the participation HTTP API",
		Long: `Serve published polls over HTTP until interrupted.

Routes:
  GET  /healthz
  GET  /api/polls
  POST /api/polls                 (authenticated)
  GET  /api/polls/:id
  POST /api/polls/:id/active
  POST /api/polls/:id/submissions
  GET  /api/polls/:id/results

With --jwt-secret, a bearer token whose subject is the user id identifies
the participant; requests without a token are anonymous. Creating polls
over HTTP needs a token, so it is unavailable without --jwt-secret.

Anonymous submissions are rate limited per client IP. Behind a reverse
proxy, list it with --trusted-proxy so X-Forwarded-For is honoured.

Example:
  branchpoll serve --db ./polls.db --addr :8080 --rate 1 --burst 5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	addDatabaseFlag(cmd, &opts.Database)
	cmd.Flags().StringVar(&opts.Addr, "addr", cmp.Or(os.Getenv(EnvAddr), DefaultAddr), "listen address (or $"+EnvAddr+")")
	cmd.Flags().StringVar(&opts.JWTSecret, "jwt-secret", os.Getenv(EnvJWTSecret), "HS256 secret for bearer tokens (or $"+EnvJWTSecret+")")
	cmd.Flags().Float64Var(&opts.Rate, "rate", 1, "submissions per second per participant (0 = unlimited)")
	cmd.Flags().IntVar(&opts.Burst, "burst", 5, "submission burst per participant")
	cmd.Flags().StringSliceVar(&opts.AllowOrigins, "allow-origin", nil, "CORS allowed origins (default *)")
	cmd.Flags().StringSliceVar(&opts.Proxies, "trusted-proxy", nil, "proxy IPs or CIDRs allowed to set X-Forwarded-For")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Rate < 0 || opts.Burst < 0 {
		return outputCommandError(formatter, ErrCodeBadArgument, "--rate and --burst must be non-negative")
	}

	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(formatter.GetErrWriter(), &slog.HandlerOptions{Level: logLevel}))
	if !opts.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, st, err := openService(ctx, opts.Database, formatter, service.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	router := httpapi.NewRouter(svc, st, httpapi.Config{
		JWTSecret:      opts.JWTSecret,
		SubmitRate:     rate.Limit(opts.Rate),
		SubmitBurst:    opts.Burst,
		AllowOrigins:   opts.AllowOrigins,
		TrustedProxies: opts.Proxies,
		Logger:         logger,
	})

	logger.Info("serving polls", "db", opts.Database, "addr", opts.Addr, "auth", opts.JWTSecret != "")
	if err := httpapi.ListenAndServe(ctx, opts.Addr, router, logger); err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("serve on %s: %v", opts.Addr, err))
	}
	logger.Info("server stopped gracefully")
	return nil
}
