package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gmailsql/gmailsql/internal/config"
	"github.com/gmailsql/gmailsql/internal/gmail"
	"github.com/gmailsql/gmailsql/internal/handler"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gmailsql",
	Short: "Query Gmail with SQL",
	Long: `gmailsql executes restricted SELECT queries against the Gmail REST API
and returns tabular results.

WHERE clauses map onto Gmail list parameters (q, label_ids,
include_spam_trash), LIMIT caps the total row count, and message
payloads are normalized into flat rows with decoded bodies and a fixed
set of headers.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
}

// Execute runs the root command with a background context.
// Prefer ExecuteContext for signal-aware execution.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// newHandler builds a Gmail client from the loaded config and wraps it
// in a query handler. The caller owns the returned client's lifetime.
func newHandler(ctx context.Context) (*handler.Handler, *gmail.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	tokenSource, err := cfg.TokenSource(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("build token source: %w", err)
	}

	client := gmail.NewClient(tokenSource,
		gmail.WithLogger(logger),
		gmail.WithConcurrency(cfg.Fetch.BatchConcurrency),
		gmail.WithRateLimiter(gmail.NewRateLimiter(cfg.Fetch.RateLimitQPS)),
	)

	return handler.New(client, handler.WithLogger(logger)), client, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.gmailsql/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
