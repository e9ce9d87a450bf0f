package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hprofgraph/hprofviz/internal/chunkio"
	"github.com/hprofgraph/hprofviz/internal/repository"
	"github.com/hprofgraph/hprofviz/pkg/hprof"
	"github.com/hprofgraph/hprofviz/pkg/index"
)

var (
	buildIndexFile   string
	buildIndexOutput string
)

var buildIndexCmd = &cobra.Command{
	Use:   "build-index",
	Short: "Build the out-of-core obj-id index for a hprof file",
	Long: `build-index streams the hprof file once, writing sorted obj-id ->
class-id and obj-id -> primitive-array-type chunks, n-way merges them, and
bulk-loads the result into an embedded store under --output. ref-graph and
gc-root-path reuse that store instead of rebuilding it on every query.`,
	RunE: runBuildIndex,
}

func init() {
	rootCmd.AddCommand(buildIndexCmd)
	buildIndexCmd.Flags().StringVar(&buildIndexFile, "file", "", "Path to the hprof file (required)")
	buildIndexCmd.Flags().StringVar(&buildIndexOutput, "output", "", "Directory to build the index in (required)")
	buildIndexCmd.MarkFlagRequired("file")
	buildIndexCmd.MarkFlagRequired("output")
}

func runBuildIndex(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	ctx := cmd.Context()

	localFile, cleanup, err := resolveInputPath(ctx, buildIndexFile)
	if err != nil {
		return err
	}
	defer cleanup()

	buf, err := os.ReadFile(localFile)
	if err != nil {
		return fmt.Errorf("read hprof file: %w", err)
	}

	if err := os.MkdirAll(buildIndexOutput, 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	cfg := index.DefaultConfig()
	cfg.Workers = WorkersConfig()
	if appConfig != nil {
		cfg.Compress = appConfig.Index.Compress
		cfg.CompressionLevel = parseCompressionLevel(appConfig.Index.CompressionLevel)
	}

	spanCtx, span := otel.Tracer("hprofviz").Start(ctx, "build-index")
	span.SetAttributes(attribute.String("file", buildIndexFile), attribute.Int64("size_bytes", int64(len(buf))))
	defer span.End()

	log.Info("building index for %s in %s", buildIndexFile, buildIndexOutput)
	var fingerprint hprof.Fingerprint
	err = recordRun(ctx, repository.RunKindBuildIndex, buildIndexFile, buildIndexOutput, func() (uint64, error) {
		store, fp, berr := index.Build(spanCtx, buf, buildIndexOutput, cfg)
		if berr != nil {
			return 0, berr
		}
		defer store.Close()
		fingerprint = fp
		return fp.TotalRecordCount, nil
	})
	if err != nil {
		return err
	}

	log.Info("index built: timestamp=%d records=%d", fingerprint.HeaderTimestampMillis, fingerprint.TotalRecordCount)
	return nil
}

func parseCompressionLevel(s string) chunkio.Level {
	switch s {
	case "fast", "fastest":
		return chunkio.LevelFastest
	case "best":
		return chunkio.LevelBest
	default:
		return chunkio.LevelDefault
	}
}
