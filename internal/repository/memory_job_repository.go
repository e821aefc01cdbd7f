// internal/repository/memory_job_repository.go
package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"printer-service/internal/model"
)

// memoryJobRepository keeps the most recent entries in a ring when the
// database journal is disabled
type memoryJobRepository struct {
	mutex    sync.RWMutex
	records  []*model.JobRecord
	capacity int
}

// NewMemoryJobRepository creates an in-process journal holding at most
// capacity entries
func NewMemoryJobRepository(capacity int) JobRepository {
	if capacity <= 0 {
		capacity = maxListLimit
	}
	return &memoryJobRepository{capacity: capacity}
}

func (r *memoryJobRepository) Create(_ context.Context, record *model.JobRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	copied := *record

	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.records = append(r.records, &copied)
	if over := len(r.records) - r.capacity; over > 0 {
		r.records = append([]*model.JobRecord(nil), r.records[over:]...)
	}
	return nil
}

func (r *memoryJobRepository) GetByJobID(_ context.Context, jobID string) (*model.JobRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].JobID == jobID {
			copied := *r.records[i]
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
}

func (r *memoryJobRepository) List(_ context.Context, filter *JobFilter) ([]*model.JobRecord, error) {
	limit := filter.normalizeLimit()
	offset := 0
	if filter != nil && filter.Offset > 0 {
		offset = filter.Offset
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var out []*model.JobRecord
	skipped := 0
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		rec := r.records[i]
		if !matches(filter, rec) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		copied := *rec
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memoryJobRepository) GetStats(_ context.Context, since time.Time) (*JobStats, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := newJobStats()
	var totalDuration int
	for _, rec := range r.records {
		if rec.CreatedAt.Before(since) {
			continue
		}
		stats.Total++
		stats.ByStatus[rec.Status]++
		if rec.ErrorCode != nil {
			stats.ByErrorCode[*rec.ErrorCode]++
		}
		totalDuration += rec.DurationMs
	}
	if stats.Total > 0 {
		stats.AvgDurationMs = float64(totalDuration) / float64(stats.Total)
	}
	return stats, nil
}

func (r *memoryJobRepository) DeleteOlderThan(_ context.Context, olderThan time.Time) (int64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	kept := r.records[:0]
	for _, rec := range r.records {
		if !rec.CreatedAt.Before(olderThan) {
			kept = append(kept, rec)
		}
	}
	deleted := int64(len(r.records) - len(kept))
	r.records = kept
	return deleted, nil
}

func matches(filter *JobFilter, rec *model.JobRecord) bool {
	if filter == nil {
		return true
	}
	if filter.DeviceID != nil && rec.DeviceID != *filter.DeviceID {
		return false
	}
	if filter.Status != nil && rec.Status != *filter.Status {
		return false
	}
	if filter.StartDate != nil && rec.CreatedAt.Before(*filter.StartDate) {
		return false
	}
	if filter.EndDate != nil && rec.CreatedAt.After(*filter.EndDate) {
		return false
	}
	return true
}
