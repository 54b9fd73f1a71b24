package commands

import (
	"benchsync/internal/benchmarks"
	"benchsync/internal/telemetry"
	"benchsync/lib/configutil"
	"benchsync/lib/osutil"
	"benchsync/lib/slogutil"
	libtelemetry "benchsync/lib/telemetry"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mazen160/go-random"
	"github.com/spf13/cobra"
)

var (
	configPath *string
	inputPath  *string
	outputPath *string
	verbose    *bool
)

// globals are set up by the root command before any subcommand runs.
var (
	config  Config
	tel     telemetry.API
	closers []io.Closer
)

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "config.json5", "The configuration file, a sibling <name>.local.json5 overrides it.")
	inputPath = rootCmd.PersistentFlags().String("input", "", "The seed csv table, used when the output does not exist yet.")
	outputPath = rootCmd.PersistentFlags().String("output", "", "The durable csv table that is read and rewritten after every batch.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Print debug logs to the console.")
}

var rootCmd = &cobra.Command{
	Use:           "benchsync",
	Short:         "benchsync fills the benchmark columns of an athlete table by scraping athlete profiles.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		config, err = configutil.ReadWithDefaults(*configPath, defaultConfig())
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if *inputPath != "" {
			config.Storage.Input = *inputPath
		}
		if *outputPath != "" {
			config.Storage.Output = *outputPath
		}

		logger, logFile := slogutil.New(slogutil.Options{
			Verbose:    *verbose,
			LogFile:    config.Log.File,
			MaxSizeMB:  config.Log.MaxSizeMB,
			MaxBackups: config.Log.MaxBackups,
		})
		closers = append(closers, logFile)

		runID, err := random.String(8)
		if err != nil {
			return fmt.Errorf("generate run id: %w", err)
		}
		logger = logger.With("run_id", runID, "command", cmd.Name())
		slog.SetDefault(logger)
		tel = telemetry.NewSlogAPI(logger)

		setupOtel(cmd.Context())
		return nil
	},
}

func setupOtel(ctx context.Context) {
	otel, err := libtelemetry.SetupFromEnv(ctx, "benchsync")
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("no telemetry.json5 found, opentelemetry is disabled")
		return
	}
	if err != nil {
		slog.Warn("failed to set up opentelemetry", "err", err)
		return
	}
	closers = append(closers, otelCloser{otel})
	if otel.MeterProvider != nil {
		libtelemetry.InstrumentPerfStats(ctx, 30*time.Second)
	}
}

type otelCloser struct {
	otel libtelemetry.Telemetry
}

func (c otelCloser) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.otel.Shutdown(ctx)
}

func closeAll() {
	for i := len(closers) - 1; i >= 0; i-- {
		err := closers[i].Close()
		if err != nil {
			fmt.Fprintln(os.Stderr, "close:", err)
		}
	}
	closers = nil
}

// loadStore reads the durable table, falling back to the seed table.
func loadStore(ctx context.Context) (*benchmarks.Store, benchmarks.Backend) {
	durable, seed, closer, err := config.Storage.backends()
	if err != nil {
		fatal("failed to open storage", err)
	}
	closers = append(closers, closer)

	store, err := benchmarks.Load(ctx, durable, seed, tel)
	if err != nil {
		fatal("failed to load table", err)
	}
	return store, durable
}

func fatal(message string, err error) {
	closeAll()
	osutil.Fatal(message, err)
}

func ExecuteContext(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	closeAll()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
