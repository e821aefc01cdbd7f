package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"printer-service/internal/model"
)

// failingDB rejects every statement.
type failingDB struct{ err error }

func (f failingDB) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, f.err
}

func (f failingDB) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, f.err
}

func (f failingDB) QueryRowContext(context.Context, string, ...any) *sql.Row { return nil }

func TestBuildJobWhere(t *testing.T) {
	device := "local_printer"
	status := model.JobStatusFailed
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		filter   *JobFilter
		want     string
		wantArgs int
	}{
		{"nil filter", nil, "", 0},
		{"empty filter", &JobFilter{}, "", 0},
		{"device", &JobFilter{DeviceID: &device}, "WHERE device_id = $1", 1},
		{
			"device status start",
			&JobFilter{DeviceID: &device, Status: &status, StartDate: &start},
			"WHERE device_id = $1 AND status = $2 AND created_at >= $3",
			3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, args := buildJobWhere(tt.filter)
			if got != tt.want {
				t.Errorf("where = %q, want %q", got, tt.want)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("args = %v, want %d", args, tt.wantArgs)
			}
		})
	}
}

func TestNormalizeLimit(t *testing.T) {
	var nilFilter *JobFilter
	if got := nilFilter.normalizeLimit(); got != defaultListLimit {
		t.Errorf("nil filter limit = %d", got)
	}
	if got := (&JobFilter{Limit: 10_000}).normalizeLimit(); got != maxListLimit {
		t.Errorf("large limit = %d", got)
	}
	if got := (&JobFilter{Limit: 7}).normalizeLimit(); got != 7 {
		t.Errorf("limit = %d", got)
	}
}

func TestMemoryJobRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryJobRepository(3)
	base := time.Now().Add(-time.Hour)

	code := "TIMEOUT"
	for i := 0; i < 4; i++ {
		rec := &model.JobRecord{
			JobID:      fmt.Sprintf("job-%d", i),
			DeviceID:   "local_printer",
			Status:     model.JobStatusSuccess,
			DurationMs: 100,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if i == 3 {
			rec.Status = model.JobStatusTimeout
			rec.ErrorCode = &code
		}
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	if _, err := repo.GetByJobID(ctx, "job-0"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("oldest entry should be evicted, got %v", err)
	}

	list, err := repo.List(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 || list[0].JobID != "job-3" || list[2].JobID != "job-1" {
		t.Errorf("unexpected order: %v", jobIDs(list))
	}

	failed := model.JobStatusTimeout
	list, _ = repo.List(ctx, &JobFilter{Status: &failed})
	if len(list) != 1 || list[0].JobID != "job-3" {
		t.Errorf("status filter: %v", jobIDs(list))
	}

	list, _ = repo.List(ctx, &JobFilter{Limit: 1, Offset: 1})
	if len(list) != 1 || list[0].JobID != "job-2" {
		t.Errorf("paging: %v", jobIDs(list))
	}

	stats, _ := repo.GetStats(ctx, base)
	if stats.Total != 3 || stats.ByStatus[model.JobStatusSuccess] != 2 || stats.ByErrorCode["TIMEOUT"] != 1 {
		t.Errorf("stats: %+v", stats)
	}
	if stats.AvgDurationMs != 100 {
		t.Errorf("avg duration = %v", stats.AvgDurationMs)
	}

	deleted, _ := repo.DeleteOlderThan(ctx, base.Add(150*time.Second))
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
}

func jobIDs(records []*model.JobRecord) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.JobID)
	}
	return ids
}

func TestJobRepositoryLogsFailedQueries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	dbErr := errors.New("connection reset")
	repo := NewJobRepository(failingDB{err: dbErr}, zap.New(core))
	ctx := context.Background()

	if err := repo.Create(ctx, &model.JobRecord{JobID: "job-1"}); !errors.Is(err, dbErr) {
		t.Fatalf("Create error = %v", err)
	}
	if _, err := repo.List(ctx, nil); !errors.Is(err, dbErr) {
		t.Fatalf("List error = %v", err)
	}
	if _, err := repo.DeleteOlderThan(ctx, time.Now()); !errors.Is(err, dbErr) {
		t.Fatalf("DeleteOlderThan error = %v", err)
	}

	failed := logs.FilterMessage("Database query failed")
	if failed.Len() != 3 {
		t.Fatalf("got %d failed query entries, want 3: %v", failed.Len(), logs.All())
	}
	for i, want := range []string{"insert_print_job", "list_print_jobs", "prune_print_jobs"} {
		fields := failed.All()[i].ContextMap()
		if fields["query"] != want || fields["service"] != "print_jobs" {
			t.Errorf("entry %d fields = %v, want query %s", i, fields, want)
		}
	}
}
