package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hprofgraph/hprofviz/internal/logging"
	"github.com/hprofgraph/hprofviz/internal/parallel"
	"github.com/hprofgraph/hprofviz/internal/repository"
	"github.com/hprofgraph/hprofviz/internal/telemetry"
	"github.com/hprofgraph/hprofviz/pkg/config"
)

var (
	// Global flags
	threads      int
	configPath   string
	verbose      bool
	logFormatStr string

	logger           logging.Logger
	appConfig        *config.Config
	telemetryShutdown telemetry.ShutdownFunc
	runRepo          repository.RunRepository
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "hprofviz",
	Short: "Parse and analyze JVM hprof heap dumps",
	Long: `hprofviz is a CLI tool for working with JVM hprof heap-dump files.

It reads the whole dump into memory and walks its records lazily without
copying record bodies, builds an out-of-core obj-id index for the lookups heap-graph construction needs at
scale, and renders instance-count reports, class-hierarchy diagrams,
reference-count graphs, gc-root reachability paths, and single-object dumps.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		appConfig = cfg

		level := logging.ParseLevel(cfg.Log.Level)
		if verbose {
			level = logging.LevelDebug
		}
		format := logging.ParseFormat(cfg.Log.Format)
		if logFormatStr != "" {
			format = logging.ParseFormat(logFormatStr)
		}
		logger = logging.NewDefaultLoggerWithFormat(level, os.Stderr, format)

		shutdown, err := telemetry.Init(cmd.Context())
		if err != nil {
			logger.Warn("telemetry init failed, continuing without tracing: %v", err)
			shutdown = func(context.Context) error { return nil }
		}
		telemetryShutdown = shutdown

		if cfg.Database.Driver != "" && cfg.Database.DSN != "" {
			db, err := repository.NewGormDB(repository.DBConfig{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN})
			if err != nil {
				return fmt.Errorf("connect run-history database: %w", err)
			}
			runRepo = repository.NewGormRunRepository(db)
		}

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if telemetryShutdown != nil {
			return telemetryShutdown(cmd.Context())
		}
		return nil
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	binName := BinName()
	rootCmd.PersistentFlags().IntVar(&threads, "threads", 0, "Worker count for parallel stages (0 = automatic)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to an hprofviz config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug-level logging")
	rootCmd.PersistentFlags().StringVar(&logFormatStr, "log-format", "", "Log line format: text or json (overrides config)")

	rootCmd.Example = `  # Count live instances per class
  ` + binName + ` instance-counts --file heap.hprof

  # Render the class hierarchy as a DOT graph
  ` + binName + ` class-hierarchy --file heap.hprof --output hierarchy.dot

  # Build the out-of-core obj-id index once, reuse it across queries
  ` + binName + ` build-index --file heap.hprof --output ./idx

  # Render the type-to-type reference-count graph
  ` + binName + ` ref-graph --file heap.hprof --index ./idx --output ./graph

  # Find a gc-root path to a specific object
  ` + binName + ` gc-root-path --file heap.hprof --index ./idx --obj-id 0x7f3a1

  # Dump one object's fields
  ` + binName + ` object-dump --file heap.hprof --obj-id 0x7f3a1`
}

// GetLogger returns the configured logger. Valid only after
// PersistentPreRunE has run.
func GetLogger() logging.Logger {
	return logger
}

// WorkersConfig resolves the effective parallel.Config: the --threads flag
// takes priority, then the loaded config file, then parallel.DefaultConfig.
func WorkersConfig() parallel.Config {
	cfg := parallel.DefaultConfig()
	if appConfig != nil {
		cfg = cfg.WithWorkers(appConfig.Threads.Count)
	}
	return cfg.WithWorkers(threads)
}

// BinName returns the base name of the current executable.
func BinName() string {
	return filepath.Base(os.Args[0])
}

// recordRun runs fn, wrapping it with a Run row in the job-history database
// when one is configured. fn returns the number of records it processed,
// persisted on success; its error is persisted and also returned as-is.
// With no database configured, recordRun is a pass-through to fn.
func recordRun(ctx context.Context, kind repository.RunKind, inputPath, outputPath string, fn func() (uint64, error)) error {
	if runRepo == nil {
		_, err := fn()
		return err
	}

	id, err := runRepo.CreateRun(ctx, &repository.Run{
		Kind:       kind,
		InputPath:  inputPath,
		OutputPath: outputPath,
	})
	if err != nil {
		logger.Warn("failed to record run start: %v", err)
		_, err := fn()
		return err
	}

	count, runErr := fn()

	status := repository.RunStatusSucceeded
	errMsg := ""
	if runErr != nil {
		status = repository.RunStatusFailed
		errMsg = runErr.Error()
	}
	if updateErr := runRepo.UpdateRun(ctx, id, status, count, errMsg); updateErr != nil {
		logger.Warn("failed to record run completion: %v", updateErr)
	}
	return runErr
}
