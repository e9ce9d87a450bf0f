package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hprofgraph/hprofviz/internal/repository"
	"github.com/hprofgraph/hprofviz/pkg/analysis"
)

var (
	objectDumpFile  string
	objectDumpObjID string
)

var objectDumpCmd = &cobra.Command{
	Use:   "object-dump",
	Short: "Print one object's fields, resolving references to their class or array",
	RunE:  runObjectDump,
}

func init() {
	rootCmd.AddCommand(objectDumpCmd)
	objectDumpCmd.Flags().StringVar(&objectDumpFile, "file", "", "Path to the hprof file (required)")
	objectDumpCmd.Flags().StringVar(&objectDumpObjID, "obj-id", "", "Object id to dump, decimal or 0x-prefixed hex (required)")
	objectDumpCmd.MarkFlagRequired("file")
	objectDumpCmd.MarkFlagRequired("obj-id")
}

func runObjectDump(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	objID, err := parseObjID(objectDumpObjID)
	if err != nil {
		return err
	}

	localFile, cleanup, err := resolveInputPath(ctx, objectDumpFile)
	if err != nil {
		return err
	}
	defer cleanup()

	buf, err := os.ReadFile(localFile)
	if err != nil {
		return fmt.Errorf("read hprof file: %w", err)
	}

	return recordRun(ctx, repository.RunKindObjectDump, objectDumpFile, "", func() (uint64, error) {
		return 0, analysis.ObjectDump(buf, objID, os.Stdout)
	})
}
