package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/kursadbilgin/batch-trace/internal/bootstrap"
	"github.com/kursadbilgin/batch-trace/internal/config"
	"github.com/kursadbilgin/batch-trace/internal/domain"
	"github.com/kursadbilgin/batch-trace/internal/observability"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

// globalOptions override the environment configuration for one invocation.
type globalOptions struct {
	storeDriver string
	sqlitePath  string
	redisURL    string
	databaseDSN string
	seedFile    string
	verbose     bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "batchctl",
		Short:         "Operate production batches from the terminal",
		Long:          "batchctl starts, pauses and completes batches and inspects lot traceability against the same snapshot store as the api.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.storeDriver, "store", "", "snapshot store driver: memory, redis, postgres or sqlite (default from STORE_DRIVER)")
	flags.StringVar(&opts.sqlitePath, "sqlite-path", "", "sqlite database file (default from SQLITE_PATH)")
	flags.StringVar(&opts.redisURL, "redis-url", "", "redis connection url (default from REDIS_URL)")
	flags.StringVar(&opts.databaseDSN, "dsn", "", "postgres dsn (default from DATABASE_DSN)")
	flags.StringVar(&opts.seedFile, "seed", "", "yaml seed file used when no batches are stored (default from SEED_FILE)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newBatchesCmd(opts))
	cmd.AddCommand(newStartCmd(opts))
	cmd.AddCommand(newPauseCmd(opts))
	cmd.AddCommand(newCompleteCmd(opts))
	cmd.AddCommand(newLotsCmd(opts))
	cmd.AddCommand(newTraceCmd(opts))
	cmd.AddCommand(newLoginCmd(opts))
	cmd.AddCommand(newLogoutCmd(opts))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "batchctl %s (commit: %s)\n", Version, Commit)
		},
	}
}

// openApp loads the environment configuration, applies flag overrides and
// opens the services against the configured store.
func openApp(cmd *cobra.Command, opts *globalOptions) (*bootstrap.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if opts.storeDriver != "" {
		cfg.StoreDriver = opts.storeDriver
	}
	if opts.sqlitePath != "" {
		cfg.SQLitePath = opts.sqlitePath
	}
	if opts.redisURL != "" {
		cfg.RedisURL = opts.redisURL
	}
	if opts.databaseDSN != "" {
		cfg.DatabaseDSN = opts.databaseDSN
	}
	if opts.seedFile != "" {
		cfg.SeedFile = opts.seedFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := zap.NewNop()
	if opts.verbose {
		logger, err = observability.NewLogger(observability.LoggerConfig{
			Level:     cfg.LogLevel,
			Format:    cfg.LogFormat,
			Component: "batchctl",
		})
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}

	return bootstrap.New(commandContext(cmd), cfg, logger)
}

// settle retries a failed snapshot write once. A persistence warning that
// survives the retry is returned as an error.
func settle(cmd *cobra.Command, app *bootstrap.App, err error) error {
	if err == nil || !errors.Is(err, domain.ErrPersistence) {
		return err
	}
	if flushErr := app.Flush(commandContext(cmd)); flushErr != nil {
		return fmt.Errorf("changes were not saved: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "warning: first save failed, retried successfully: %v\n", err)
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
