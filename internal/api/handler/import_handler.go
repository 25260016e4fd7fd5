package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/catalogtools/importer/internal/api/dto"
	"github.com/catalogtools/importer/internal/api/storage"
	"github.com/catalogtools/importer/internal/importer/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Upload handles POST /api/v1/products/upload
// Accepts a multipart CSV file, spools it, creates an import job, and hands
// the job to the configured execution strategy. Responds 202 with the job
// snapshot (terminal already in inline mode).
func (h *ImportHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "A CSV file is required in the 'file' field",
		})
		return
	}

	if !strings.HasSuffix(strings.ToLower(file.Filename), ".csv") {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Only CSV files are allowed",
		})
		return
	}

	if err := os.MkdirAll(h.spoolDir, 0o755); err != nil {
		h.logger.Error("Failed to create spool directory", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to store uploaded file",
		})
		return
	}

	spoolPath := filepath.Join(h.spoolDir, uuid.New().String()+".csv")
	if err := c.SaveUploadedFile(file, spoolPath); err != nil {
		h.logger.Error("Failed to spool uploaded file", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to store uploaded file",
		})
		return
	}

	job := &domain.ImportJob{
		JobID:      uuid.New().String(),
		SourceName: file.Filename,
		Status:     domain.JobStatusPending,
	}

	if err := h.jobs.CreateJob(c.Request.Context(), job); err != nil {
		h.logger.Error("Failed to create import job", slog.String("error", err.Error()))
		_ = os.Remove(spoolPath)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create import job",
		})
		return
	}

	h.logger.Info("CSV upload accepted",
		slog.String("job_id", job.JobID),
		slog.String("source_name", job.SourceName),
		slog.Int64("size_bytes", file.Size),
	)

	msg := domain.JobMessage{
		JobType:  domain.JobTypeCSVImport,
		JobID:    job.JobID,
		FilePath: spoolPath,
	}
	if err := h.runner.Dispatch(c.Request.Context(), msg); err != nil {
		h.logger.Error("Failed to dispatch import job",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
		_ = h.jobs.MarkFailed(c.Request.Context(), job.JobID, "failed to schedule import: "+err.Error())
		_ = os.Remove(spoolPath)
	}

	// Re-read so inline mode returns the terminal snapshot.
	snapshot, err := h.jobs.GetJob(c.Request.Context(), job.JobID)
	if err != nil {
		h.logger.Error("Failed to load import job snapshot", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load import job",
		})
		return
	}

	c.JSON(http.StatusAccepted, toImportJobDTO(snapshot))
}

// GetImportJob handles GET /api/v1/import-jobs/:job_id
// Returns the current snapshot, or switches to the SSE stream when the
// client asks for text/event-stream.
func (h *ImportHandler) GetImportJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	if strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		h.streamImportJob(c, jobID)
		return
	}

	job, err := h.jobs.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Import job not found",
			})
			return
		}
		h.logger.Error("Failed to get import job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get import job",
		})
		return
	}

	c.JSON(http.StatusOK, toImportJobDTO(job))
}

// StreamImportJob handles GET /api/v1/import-jobs/:job_id/events
// Emits the job snapshot as a self-contained SSE event once per poll
// interval until the job reaches a terminal state.
func (h *ImportHandler) StreamImportJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	h.streamImportJob(c, jobID)
}

func (h *ImportHandler) streamImportJob(c *gin.Context, jobID string) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	first := true
	c.Stream(func(w io.Writer) bool {
		if !first {
			select {
			case <-c.Request.Context().Done():
				return false
			case <-ticker.C:
			}
		}
		first = false

		job, err := h.jobs.GetJob(c.Request.Context(), jobID)
		if err != nil {
			// A vanished job terminates the stream with an error event
			// instead of hanging the client.
			msg := "Import job not found"
			if !errors.Is(err, domain.ErrJobNotFound) {
				h.logger.Error("SSE snapshot read failed",
					slog.String("job_id", jobID),
					slog.String("error", err.Error()),
				)
				msg = "Failed to read import job"
			}
			writeSSE(w, gin.H{"error": msg})
			return false
		}

		writeSSE(w, toImportJobDTO(job))
		return !job.IsComplete()
	})
}

func writeSSE(w io.Writer, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// ListImportJobs handles GET /api/v1/import-jobs
// Lists import jobs with optional status filtering and cursor pagination.
func (h *ImportHandler) ListImportJobs(c *gin.Context) {
	var req dto.ListImportJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := storage.JobFilter{
		Status:   req.Status,
		PageSize: req.PageSize,
		Cursor:   cursor,
	}

	jobs, err := h.storage.ListImportJobs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list import jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list import jobs",
		})
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	jobResponse := make([]dto.ImportJobDTO, len(jobs))
	for i := range jobs {
		jobResponse[i] = toImportJobDTO(&jobs[i])
	}

	var nextCursor string
	if hasMore {
		last := jobs[len(jobs)-1]
		nextCursor = EncodeJobCursor(&storage.JobCursor{
			CreatedAt: last.CreatedAt,
			JobID:     last.JobID,
		})
	}

	c.JSON(http.StatusOK, dto.ListImportJobsResponse{
		Jobs:       jobResponse,
		NextCursor: nextCursor,
	})
}

func toImportJobDTO(job *domain.ImportJob) dto.ImportJobDTO {
	return dto.ImportJobDTO{
		JobID:              job.JobID,
		SourceName:         job.SourceName,
		Status:             job.Status,
		TotalRows:          job.TotalRows,
		ProcessedRows:      job.ProcessedRows,
		SuccessfulRows:     job.SuccessfulRows,
		DuplicateRows:      job.DuplicateRows,
		FailedRows:         job.FailedRows,
		ErrorMessage:       job.ErrorMessage,
		ProgressPercentage: job.ProgressPercentage(),
		IsComplete:         job.IsComplete(),
		CreatedAt:          job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          job.UpdatedAt.Format(time.RFC3339),
	}
}
