package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hprofgraph/hprofviz/internal/csvwriter"
	"github.com/hprofgraph/hprofviz/internal/repository"
	"github.com/hprofgraph/hprofviz/pkg/analysis"
)

var (
	instanceCountsFile   string
	instanceCountsOutput string
)

var instanceCountsCmd = &cobra.Command{
	Use:   "instance-counts",
	Short: "Count live instances per class and report total shallow size",
	RunE:  runInstanceCounts,
}

func init() {
	rootCmd.AddCommand(instanceCountsCmd)
	instanceCountsCmd.Flags().StringVar(&instanceCountsFile, "file", "", "Path to the hprof file (required)")
	instanceCountsCmd.Flags().StringVar(&instanceCountsOutput, "output", "", "CSV output path (default: stdout)")
	instanceCountsCmd.MarkFlagRequired("file")
}

func runInstanceCounts(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	ctx := cmd.Context()

	localFile, cleanup, err := resolveInputPath(ctx, instanceCountsFile)
	if err != nil {
		return err
	}
	defer cleanup()

	buf, err := os.ReadFile(localFile)
	if err != nil {
		return fmt.Errorf("read hprof file: %w", err)
	}

	out, finish, err := outputDestination(ctx, instanceCountsOutput)
	if err != nil {
		return err
	}

	cfg := analysis.DefaultConfig()
	cfg.Workers = WorkersConfig()

	spanCtx, span := otel.Tracer("hprofviz").Start(ctx, "instance-counts")
	span.SetAttributes(attribute.String("file", instanceCountsFile))
	defer span.End()

	w := csvwriter.New(out)
	log.Info("counting instances across %s", instanceCountsFile)
	runErr := recordRun(ctx, repository.RunKindInstanceCounts, instanceCountsFile, instanceCountsOutput, func() (uint64, error) {
		return 0, analysis.InstanceCounts(spanCtx, buf, cfg, w)
	})
	if finishErr := finish(); finishErr != nil && runErr == nil {
		runErr = finishErr
	}
	if runErr != nil {
		return runErr
	}
	log.Info("instance-counts complete")
	return nil
}
