// Package repository persists one audit row per hprofviz CLI invocation, so
// a batch hprof-processing pipeline has a queryable history of what ran,
// against which file, and with what outcome.
package repository

import "time"

// RunKind identifies which subcommand produced a Run row.
type RunKind string

const (
	RunKindBuildIndex     RunKind = "index-build"
	RunKindInstanceCounts RunKind = "instance-counts"
	RunKindRefGraph       RunKind = "ref-graph"
	RunKindClassHierarchy RunKind = "class-hierarchy"
	RunKindObjectDump     RunKind = "object-dump"
	RunKindGcRootPath     RunKind = "gc-root-path"
)

// RunStatus is a Run's terminal or in-flight state.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one CLI invocation's audit row: what kind of pass ran, over which
// input/output paths, how many records it touched, and how it ended.
type Run struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Kind        RunKind   `gorm:"column:kind;type:varchar(32);index"`
	InputPath   string    `gorm:"column:input_path;type:varchar(1024)"`
	OutputPath  string    `gorm:"column:output_path;type:varchar(1024)"`
	Status      RunStatus `gorm:"column:status;type:varchar(16);index"`
	RecordCount uint64    `gorm:"column:record_count"`
	StartedAt   time.Time `gorm:"column:started_at"`
	FinishedAt  *time.Time `gorm:"column:finished_at"`
	Error       string    `gorm:"column:error;type:text"`
}

// TableName returns the table name for Run.
func (Run) TableName() string {
	return "hprofviz_run"
}
