package domain

import "time"

// Import job status values. A job moves pending -> parsing -> importing ->
// completed, or to failed from any non-terminal status. No status is
// re-entered.
const (
	JobStatusPending   = "pending"
	JobStatusParsing   = "parsing"
	JobStatusImporting = "importing"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Job types carried in queue messages.
const (
	JobTypeCSVImport  = "csv_import"
	JobTypeBulkDelete = "bulk_delete"
)

// ImportJob is the persisted record tracking one ingestion run.
type ImportJob struct {
	JobID          string    `db:"job_id"`
	SourceName     string    `db:"source_name"`
	Status         string    `db:"status"`
	TotalRows      int       `db:"total_rows"`
	ProcessedRows  int       `db:"processed_rows"`
	SuccessfulRows int       `db:"successful_rows"`
	DuplicateRows  int       `db:"duplicate_rows"`
	FailedRows     int       `db:"failed_rows"`
	ErrorMessage   string    `db:"error_message"`
	WorkerID       string    `db:"worker_id"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// IsTerminalStatus reports whether s is completed or failed.
func IsTerminalStatus(s string) bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransition reports whether the state machine allows moving from one
// status to another. Terminal statuses absorb: nothing leaves them.
func CanTransition(from, to string) bool {
	switch from {
	case JobStatusPending:
		return to == JobStatusParsing || to == JobStatusFailed
	case JobStatusParsing:
		// Empty input short-circuits straight to completed.
		return to == JobStatusImporting || to == JobStatusCompleted || to == JobStatusFailed
	case JobStatusImporting:
		return to == JobStatusCompleted || to == JobStatusFailed
	default:
		return false
	}
}

// IsComplete reports whether the job has reached a terminal status.
func (j *ImportJob) IsComplete() bool {
	return IsTerminalStatus(j.Status)
}

// ProgressPercentage returns processed/total as a percentage rounded to one
// decimal place. Zero total yields zero.
func (j *ImportJob) ProgressPercentage() float64 {
	if j.TotalRows == 0 {
		return 0
	}
	pct := float64(j.ProcessedRows) / float64(j.TotalRows) * 100
	return float64(int(pct*10+0.5)) / 10
}

// JobMessage is the queue message that hands a job to a worker.
type JobMessage struct {
	JobType     string `json:"job_type"`
	JobID       string `json:"job_id,omitempty"`
	FilePath    string `json:"file_path,omitempty"`
	DeliveryTag uint64 `json:"-"`
}
