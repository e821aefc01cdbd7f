// internal/printer/dispatcher.go
package printer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"printer-service/internal/model"
	"printer-service/internal/utils"
	"printer-service/pkg/devicetypes"
	"printer-service/pkg/driver"
)

// JobDispatcher correlates sent jobs with device responses through a
// pending table keyed by job id. Dispatch calls are serialized.
type JobDispatcher struct {
	logger *zap.Logger

	jobMu sync.Mutex

	mutex   sync.Mutex
	pending map[string]chan driver.Response
}

// NewJobDispatcher creates an empty dispatcher
func NewJobDispatcher(logger *zap.Logger) *JobDispatcher {
	return &JobDispatcher{
		logger:  logger.With(zap.String("component", "dispatcher")),
		pending: make(map[string]chan driver.Response),
	}
}

// Dispatch sends payload and waits for the job's response, the job timeout
// or ctx, whichever comes first. A timeout only stops the wait.
func (d *JobDispatcher) Dispatch(ctx context.Context, device driver.Device, job *model.PrintJob, payload []byte) model.PrintResult {
	d.jobMu.Lock()
	defer d.jobMu.Unlock()

	jobLogger := utils.NewJobLogger(d.logger, job.ID)
	jobLogger.Start(zap.Int("bytes", len(payload)))

	ch := d.register(job.ID)
	defer d.unregister(job.ID)

	if err := device.Send(ctx, job.ID, payload); err != nil {
		jobLogger.Failure(CodePrintFailed, zap.Error(err))
		return failure(job, NewError(CodePrintFailed, err))
	}

	timer := time.NewTimer(job.Settings.Timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		job.Resolved = true
		if resp.Success {
			jobLogger.Success()
			return model.PrintResult{Success: true, JobID: job.ID, Timestamp: time.Now()}
		}
		jobLogger.Failure(resp.Code, zap.Uint32("status", resp.Status))
		return failure(job, &Error{Code: resp.Code, Message: devicetypes.MessageFor(resp.Code)})

	case <-timer.C:
		jobLogger.Failure(CodeTimeout, zap.Duration("timeout", job.Settings.Timeout))
		return failure(job, NewError(CodeTimeout, nil))

	case <-ctx.Done():
		jobLogger.Failure(CodeCanceled, zap.Error(ctx.Err()))
		return failure(job, NewError(CodeCanceled, ctx.Err()))
	}
}

// Resolve delivers a response to its waiting job. Responses without a
// waiter are late or foreign and are dropped.
func (d *JobDispatcher) Resolve(resp driver.Response) bool {
	d.mutex.Lock()
	ch, ok := d.pending[resp.JobID]
	d.mutex.Unlock()

	if !ok {
		d.logger.Warn("Dropping response without pending job",
			zap.String("job_id", resp.JobID),
			zap.String("code", resp.Code),
		)
		return false
	}
	select {
	case ch <- resp:
		return true
	default:
		d.logger.Warn("Dropping duplicate response", zap.String("job_id", resp.JobID))
		return false
	}
}

// Pending returns the number of jobs waiting for a response.
func (d *JobDispatcher) Pending() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return len(d.pending)
}

func (d *JobDispatcher) register(jobID string) chan driver.Response {
	ch := make(chan driver.Response, 1)
	d.mutex.Lock()
	d.pending[jobID] = ch
	d.mutex.Unlock()
	return ch
}

func (d *JobDispatcher) unregister(jobID string) {
	d.mutex.Lock()
	delete(d.pending, jobID)
	d.mutex.Unlock()
}

func failure(job *model.PrintJob, err *Error) model.PrintResult {
	return model.PrintResult{
		Success:   false,
		JobID:     job.ID,
		Error:     err.Info(),
		Timestamp: time.Now(),
	}
}
