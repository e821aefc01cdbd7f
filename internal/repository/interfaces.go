// internal/repository/interfaces.go
package repository

import (
	"context"
	"time"

	"printer-service/internal/model"
)

// JobRepository defines print job journal operations
type JobRepository interface {
	Create(ctx context.Context, record *model.JobRecord) error
	GetByJobID(ctx context.Context, jobID string) (*model.JobRecord, error)
	List(ctx context.Context, filter *JobFilter) ([]*model.JobRecord, error)
	GetStats(ctx context.Context, since time.Time) (*JobStats, error)
	DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error)
}

// JobFilter narrows journal listings
type JobFilter struct {
	DeviceID  *string
	Status    *model.JobStatus
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// JobStats summarizes journal entries
type JobStats struct {
	Total         int                     `json:"total"`
	ByStatus      map[model.JobStatus]int `json:"by_status"`
	ByErrorCode   map[string]int          `json:"by_error_code"`
	AvgDurationMs float64                 `json:"avg_duration_ms"`
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// normalizeLimit clamps the page size
func (f *JobFilter) normalizeLimit() int {
	switch {
	case f == nil || f.Limit <= 0:
		return defaultListLimit
	case f.Limit > maxListLimit:
		return maxListLimit
	default:
		return f.Limit
	}
}
