package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hprofgraph/hprofviz/internal/repository"
	"github.com/hprofgraph/hprofviz/pkg/analysis"
)

var (
	classHierarchyFile   string
	classHierarchyOutput string
)

var classHierarchyCmd = &cobra.Command{
	Use:   "class-hierarchy",
	Short: "Render the class->superclass hierarchy as a DOT graph",
	RunE:  runClassHierarchy,
}

func init() {
	rootCmd.AddCommand(classHierarchyCmd)
	classHierarchyCmd.Flags().StringVar(&classHierarchyFile, "file", "", "Path to the hprof file (required)")
	classHierarchyCmd.Flags().StringVar(&classHierarchyOutput, "output", "", "DOT output path (default: stdout)")
	classHierarchyCmd.MarkFlagRequired("file")
}

func runClassHierarchy(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	ctx := cmd.Context()

	localFile, cleanup, err := resolveInputPath(ctx, classHierarchyFile)
	if err != nil {
		return err
	}
	defer cleanup()

	buf, err := os.ReadFile(localFile)
	if err != nil {
		return fmt.Errorf("read hprof file: %w", err)
	}

	out, finish, err := outputDestination(ctx, classHierarchyOutput)
	if err != nil {
		return err
	}

	log.Info("walking class hierarchy in %s", classHierarchyFile)
	runErr := recordRun(ctx, repository.RunKindClassHierarchy, classHierarchyFile, classHierarchyOutput, func() (uint64, error) {
		return 0, analysis.ClassHierarchy(buf, out)
	})
	if finishErr := finish(); finishErr != nil && runErr == nil {
		runErr = finishErr
	}
	if runErr != nil {
		return runErr
	}
	log.Info("class-hierarchy complete")
	return nil
}
