// internal/model/job.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// PrintJob lives for the duration of one PrintReceipt call.
type PrintJob struct {
	ID       string          `json:"id"`
	IssuedAt time.Time       `json:"issued_at"`
	Settings PrinterSettings `json:"settings"`
	Resolved bool            `json:"resolved"`
}

// NewPrintJob creates a job with a time-ordered identifier.
func NewPrintJob(settings PrinterSettings) *PrintJob {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &PrintJob{
		ID:       id.String(),
		IssuedAt: time.Now(),
		Settings: settings,
	}
}

// ErrorInfo is the error part of a PrintResult.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PrintResult is returned exactly once per PrintReceipt call.
type PrintResult struct {
	Success   bool       `json:"success"`
	JobID     string     `json:"job_id,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// JobStatus is the journal state of a print job.
type JobStatus string

const (
	JobStatusSuccess  JobStatus = "SUCCESS"
	JobStatusFailed   JobStatus = "FAILED"
	JobStatusTimeout  JobStatus = "TIMEOUT"
	JobStatusCanceled JobStatus = "CANCELED"
)

// JobRecord is a journaled print job.
type JobRecord struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	JobID         string     `json:"job_id" db:"job_id"`
	DeviceID      string     `json:"device_id" db:"device_id"`
	ReceiptNumber string     `json:"receipt_number" db:"receipt_number"`
	Copies        int        `json:"copies" db:"copies"`
	Status        JobStatus  `json:"status" db:"status"`
	ErrorCode     *string    `json:"error_code,omitempty" db:"error_code"`
	ErrorMessage  *string    `json:"error_message,omitempty" db:"error_message"`
	DurationMs    int        `json:"duration_ms" db:"duration_ms"`
	Result        JSONObject `json:"result" db:"result"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// StatusOf maps a result to its journal status.
func StatusOf(r PrintResult) JobStatus {
	switch {
	case r.Success:
		return JobStatusSuccess
	case r.Error != nil && r.Error.Code == "TIMEOUT":
		return JobStatusTimeout
	case r.Error != nil && r.Error.Code == "CANCELED":
		return JobStatusCanceled
	default:
		return JobStatusFailed
	}
}
