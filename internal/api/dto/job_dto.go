package dto

// ListImportJobsRequest carries the import-job list query parameters.
type ListImportJobsRequest struct {
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

// ImportJobDTO is the wire shape of one import job snapshot. The same shape
// is used for polling responses and for each SSE event.
type ImportJobDTO struct {
	JobID              string  `json:"job_id"`
	SourceName         string  `json:"source_name"`
	Status             string  `json:"status"`
	TotalRows          int     `json:"total_rows"`
	ProcessedRows      int     `json:"processed_rows"`
	SuccessfulRows     int     `json:"successful_rows"`
	DuplicateRows      int     `json:"duplicate_rows"`
	FailedRows         int     `json:"failed_rows"`
	ErrorMessage       string  `json:"error_message,omitempty"`
	ProgressPercentage float64 `json:"progress_percentage"`
	IsComplete         bool    `json:"is_complete"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
}

// ListImportJobsResponse is the paginated import-job list.
type ListImportJobsResponse struct {
	Jobs       []ImportJobDTO `json:"jobs"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
