package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// GormRunRepository implements RunRepository using GORM.
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new GormRunRepository.
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// CreateRun inserts a new Run row. StartedAt defaults to now if unset.
func (r *GormRunRepository) CreateRun(ctx context.Context, run *Run) (int64, error) {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}

	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return run.ID, nil
}

// UpdateRun updates an existing Run row's terminal state.
func (r *GormRunRepository) UpdateRun(ctx context.Context, id int64, status RunStatus, recordCount uint64, runErr string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&Run{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       status,
			"record_count": recordCount,
			"finished_at":  &now,
			"error":        runErr,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update run: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("run not found: %d", id)
	}
	return nil
}

// GetRun retrieves a Run by its ID.
func (r *GormRunRepository) GetRun(ctx context.Context, id int64) (*Run, error) {
	var run Run

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("run not found: %d", id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRuns retrieves the most recent Run rows, newest first.
func (r *GormRunRepository) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	var runs []*Run

	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}
