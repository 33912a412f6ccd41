package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/cinemigrate/internal/pipeline"
	"github.com/ajitpratap0/cinemigrate/pkg/config"
	"github.com/ajitpratap0/cinemigrate/pkg/connector/core"
	"github.com/ajitpratap0/cinemigrate/pkg/connector/registry"
	"github.com/ajitpratap0/cinemigrate/pkg/etlerrors"
	"github.com/ajitpratap0/cinemigrate/pkg/logger"
	"github.com/ajitpratap0/cinemigrate/pkg/metrics"
	"github.com/ajitpratap0/cinemigrate/pkg/observability"

	// Register the source and destination connectors
	_ "github.com/ajitpratap0/cinemigrate/pkg/connector/destinations/sqldb"
	_ "github.com/ajitpratap0/cinemigrate/pkg/connector/sources/sqlite"
)

var version = "0.1.0"

// sourceConnector is the registry name of the only source store.
const sourceConnector = "sqlite"

var errCountMismatch = errors.New("row counts differ between source and target")

// options holds the command line flags shared by the subcommands.
type options struct {
	configFile   string
	batchSize    int
	onWriteError string
	tables       []string
	logLevel     string
	jsonOutput   bool
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case etlerrors.HasType(err, etlerrors.ErrorTypeConfig), etlerrors.HasType(err, etlerrors.ErrorTypeValidation):
		return 2
	default:
		return 1
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "cinemigrate",
		Short: "cinemigrate - movie catalogue migration from SQLite",
		Long: `cinemigrate copies the film_work, genre, person and join tables of a SQLite
movie catalogue into a PostgreSQL, MySQL or SQLite target, one batch at a time.
Rows whose id already exists in the target are skipped, so a run can be repeated.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return etlerrors.Wrap(err, etlerrors.ErrorTypeConfig, "invalid usage")
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configFile, "config", "c", "", "Path to a YAML configuration file")
	pf.StringSliceVar(&opts.tables, "tables", nil, "Tables to migrate, in order (default: all five)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.BoolVar(&opts.jsonOutput, "json", false, "Print results as JSON")

	root.AddCommand(newRunCommand(opts), newVerifyCommand(opts), newConfigCommand(opts), newListCommand(), newVersionCommand())
	return root
}

func newRunCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Migrate the source database into the target",
		Long: `Migrate every configured table in order. Read failures abort the run.
Write failures abort by default; with --on-write-error=continue the failed
batch is logged and dropped.

Example:
  cinemigrate run --config migrate.yaml --batch-size 500 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigration(cmd, opts)
		},
	}
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "Rows per read and per INSERT")
	cmd.Flags().StringVar(&opts.onWriteError, "on-write-error", "", "Write failure policy (abort, continue)")
	return cmd
}

func newVerifyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Compare source and target row counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return verifyCounts(cmd, opts)
		},
	}
}

func newConfigCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return config.Dump(cmd.OutOrStdout(), cfg)
		},
	}
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available connectors",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Available Source Connectors:")
			for _, c := range registry.ListSources() {
				fmt.Fprintf(out, "  - %-12s %s\n", c.Name, c.Description)
			}
			fmt.Fprintln(out, "\nAvailable Destination Connectors:")
			for _, c := range registry.ListDestinations() {
				fmt.Fprintf(out, "  - %-12s %s\n", c.Name, c.Description)
			}
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "cinemigrate v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// loadConfig merges the configuration file and environment with the flags
// set on the command line, then validates the result.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("batch-size") {
		cfg.Migration.BatchSize = opts.batchSize
	}
	if flags.Changed("on-write-error") {
		cfg.Migration.OnWriteError = opts.onWriteError
	}
	if flags.Changed("tables") {
		cfg.Migration.Tables = opts.tables
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session holds the resources of one command invocation.
type session struct {
	cfg         *config.Config
	logger      *zap.Logger
	source      core.Source
	destination core.Destination
}

// open loads the configuration, builds the logger and opens both stores.
// The returned close func is safe to call on every exit path.
func open(cmd *cobra.Command, opts *options) (*session, func(), error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, func() {}, err
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Encoding:    cfg.Logging.Encoding,
		OutputPaths: cfg.Logging.OutputPaths,
	})
	if err != nil {
		return nil, func() {}, etlerrors.Wrap(err, etlerrors.ErrorTypeConfig, "failed to build logger")
	}
	log = logger.Component(log, "cinemigrate-cli")

	s := &session{cfg: cfg, logger: log}
	closeAll := func() {
		if s.destination != nil {
			if err := s.destination.Close(); err != nil {
				log.Warn("failed to close destination", zap.Error(err))
			}
		}
		if s.source != nil {
			if err := s.source.Close(); err != nil {
				log.Warn("failed to close source", zap.Error(err))
			}
		}
		_ = log.Sync()
	}

	ctx := cmd.Context()
	s.source, err = registry.CreateSource(ctx, sourceConnector, cfg, log)
	if err != nil {
		return nil, closeAll, err
	}
	s.destination, err = registry.CreateDestination(ctx, cfg.Target.Dialect, cfg, log)
	if err != nil {
		return nil, closeAll, err
	}
	return s, closeAll, nil
}

func runMigration(cmd *cobra.Command, opts *options) error {
	s, closeAll, err := open(cmd, opts)
	defer closeAll()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:        s.cfg.Observability.Tracing,
		ServiceName:    "cinemigrate",
		ServiceVersion: version,
		Writer:         cmd.ErrOrStderr(),
	})
	if err != nil {
		return etlerrors.Wrap(err, etlerrors.ErrorTypeConfig, "failed to initialize tracing")
	}
	defer shutdown(s.logger, "tracing", shutdownTracing)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	if addr := s.cfg.Observability.MetricsAddr; addr != "" {
		stopMetrics, err := metrics.Serve(addr, reg, s.logger)
		if err != nil {
			return etlerrors.Wrap(err, etlerrors.ErrorTypeConfig, "failed to start metrics server").
				WithDetail("addr", addr)
		}
		defer shutdown(s.logger, "metrics server", stopMetrics)
	}

	pcfg, err := pipeline.ConfigFrom(s.cfg)
	if err != nil {
		return err
	}
	m, err := pipeline.NewMigrator(s.source, s.destination, pcfg, s.logger,
		pipeline.WithMetrics(collector),
		pipeline.WithTracer(observability.Tracer()))
	if err != nil {
		return err
	}

	report, runErr := m.Run(ctx)
	if report != nil && opts.jsonOutput {
		if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	}
	return runErr
}

func verifyCounts(cmd *cobra.Command, opts *options) error {
	s, closeAll, err := open(cmd, opts)
	defer closeAll()
	if err != nil {
		return err
	}

	pcfg, err := pipeline.ConfigFrom(s.cfg)
	if err != nil {
		return err
	}
	m, err := pipeline.NewMigrator(s.source, s.destination, pcfg, s.logger)
	if err != nil {
		return err
	}

	counts, err := m.Verify(cmd.Context())
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		if err := writeJSON(cmd.OutOrStdout(), counts); err != nil {
			return err
		}
	} else {
		printCounts(cmd.OutOrStdout(), counts)
	}

	for _, c := range counts {
		if !c.Match() {
			return errCountMismatch
		}
	}
	return nil
}

func printCounts(w io.Writer, counts []pipeline.TableCount) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tSOURCE\tTARGET\tSTATUS")
	for _, c := range counts {
		status := "ok"
		if !c.Match() {
			status = "MISMATCH"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", c.Table, c.Source, c.Target, status)
	}
	_ = tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return etlerrors.Wrap(err, etlerrors.ErrorTypeInternal, "failed to encode JSON output")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func shutdown(log *zap.Logger, what string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Warn("failed to shut down "+what, zap.Error(err))
	}
}
