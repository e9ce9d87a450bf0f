package repository

import "context"

// RunRepository defines the interface for job-history persistence.
type RunRepository interface {
	// CreateRun inserts a new Run row with status running and returns its
	// assigned ID.
	CreateRun(ctx context.Context, run *Run) (int64, error)

	// UpdateRun updates an existing Run row's status, record count,
	// finish time, and error, identified by id.
	UpdateRun(ctx context.Context, id int64, status RunStatus, recordCount uint64, runErr string) error

	// GetRun retrieves a Run by its ID.
	GetRun(ctx context.Context, id int64) (*Run, error)

	// ListRuns retrieves the most recent Run rows, newest first, up to
	// limit.
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
}
