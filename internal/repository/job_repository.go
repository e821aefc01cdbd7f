// internal/repository/job_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"printer-service/internal/model"
	"printer-service/internal/utils"
)

// ErrJobNotFound is returned when no journal entry matches
var ErrJobNotFound = errors.New("print job not found")

// querier is the subset of *database.DB the journal needs
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// jobRepository implements JobRepository on PostgreSQL
type jobRepository struct {
	db     querier
	logger *utils.ServiceLogger
}

// NewJobRepository creates a PostgreSQL backed journal
func NewJobRepository(db querier, logger *zap.Logger) JobRepository {
	return &jobRepository{
		db:     db,
		logger: utils.NewServiceLogger(logger, "print_jobs"),
	}
}

// observe logs a finished query. A missing row is not a failure.
func (r *jobRepository) observe(name string, start time.Time, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
	}
	r.logger.LogDatabaseQuery(name, time.Since(start), err)
}

const jobColumns = `id, job_id, device_id, receipt_number, copies, status,
	error_code, error_message, duration_ms, result, created_at`

// Create inserts a journal entry
func (r *jobRepository) Create(ctx context.Context, record *model.JobRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO print_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	start := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.JobID, record.DeviceID, record.ReceiptNumber,
		record.Copies, record.Status, record.ErrorCode, record.ErrorMessage,
		record.DurationMs, record.Result, record.CreatedAt,
	)
	r.observe("insert_print_job", start, err)
	if err != nil {
		return fmt.Errorf("failed to create print job record: %w", err)
	}
	return nil
}

// GetByJobID returns the entry for a print job id
func (r *jobRepository) GetByJobID(ctx context.Context, jobID string) (*model.JobRecord, error) {
	query := `SELECT ` + jobColumns + ` FROM print_jobs WHERE job_id = $1`

	start := time.Now()
	record, err := scanJob(r.db.QueryRowContext(ctx, query, jobID))
	r.observe("get_print_job", start, err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return nil, fmt.Errorf("failed to get print job: %w", err)
	}
	return record, nil
}

// List returns entries newest first
func (r *jobRepository) List(ctx context.Context, filter *JobFilter) ([]*model.JobRecord, error) {
	where, args := buildJobWhere(filter)

	offset := 0
	if filter != nil && filter.Offset > 0 {
		offset = filter.Offset
	}
	args = append(args, filter.normalizeLimit(), offset)

	query := fmt.Sprintf(`SELECT %s FROM print_jobs %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		jobColumns, where, len(args)-1, len(args))

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, args...)
	r.observe("list_print_jobs", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list print jobs: %w", err)
	}
	defer rows.Close()

	var records []*model.JobRecord
	for rows.Next() {
		record, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan print job: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate print jobs: %w", err)
	}
	return records, nil
}

// GetStats aggregates entries created since the given time
func (r *jobRepository) GetStats(ctx context.Context, since time.Time) (*JobStats, error) {
	query := `
		SELECT status, COALESCE(error_code, ''), COUNT(*), COALESCE(SUM(duration_ms), 0)
		FROM print_jobs
		WHERE created_at >= $1
		GROUP BY status, error_code
	`
	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, since)
	r.observe("print_job_stats", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get print job stats: %w", err)
	}
	defer rows.Close()

	stats := newJobStats()
	var totalDuration int64
	for rows.Next() {
		var (
			status   model.JobStatus
			code     string
			count    int
			duration int64
		)
		if err := rows.Scan(&status, &code, &count, &duration); err != nil {
			return nil, fmt.Errorf("failed to scan print job stats: %w", err)
		}
		stats.Total += count
		stats.ByStatus[status] += count
		if code != "" {
			stats.ByErrorCode[code] += count
		}
		totalDuration += duration
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate print job stats: %w", err)
	}
	if stats.Total > 0 {
		stats.AvgDurationMs = float64(totalDuration) / float64(stats.Total)
	}
	return stats, nil
}

// DeleteOlderThan prunes the journal
func (r *jobRepository) DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	start := time.Now()
	result, err := r.db.ExecContext(ctx, `DELETE FROM print_jobs WHERE created_at < $1`, olderThan)
	r.observe("prune_print_jobs", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to prune print jobs: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n > 0 {
		r.logger.Info("Pruned print job journal", zap.Int64("deleted", n))
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.JobRecord, error) {
	record := &model.JobRecord{}
	err := row.Scan(
		&record.ID, &record.JobID, &record.DeviceID, &record.ReceiptNumber,
		&record.Copies, &record.Status, &record.ErrorCode, &record.ErrorMessage,
		&record.DurationMs, &record.Result, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// buildJobWhere renders the filter as a WHERE clause with positional args
func buildJobWhere(filter *JobFilter) (string, []any) {
	if filter == nil {
		return "", nil
	}

	var conditions []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.DeviceID != nil {
		add("device_id = $%d", *filter.DeviceID)
	}
	if filter.Status != nil {
		add("status = $%d", *filter.Status)
	}
	if filter.StartDate != nil {
		add("created_at >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("created_at <= $%d", *filter.EndDate)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func newJobStats() *JobStats {
	return &JobStats{
		ByStatus:    make(map[model.JobStatus]int),
		ByErrorCode: make(map[string]int),
	}
}
