package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/catalogtools/importer/internal/importer/domain"
)

// processJob executes a single job message with a per-job timeout
func (w *Worker) processJob(ctx context.Context, msg *domain.JobMessage) error {
	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	startTime := time.Now()

	w.logger.Info("Processing job",
		slog.String("worker_id", w.workerID),
		slog.String("job_type", msg.JobType),
		slog.String("job_id", msg.JobID),
	)

	err := w.executor.Execute(jobCtx, *msg)

	duration := time.Since(startTime)

	if err != nil {
		w.logger.Error("Job execution failed",
			slog.String("worker_id", w.workerID),
			slog.String("job_type", msg.JobType),
			slog.String("job_id", msg.JobID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()),
		)
		return err
	}

	w.logger.Info("Job executed",
		slog.String("worker_id", w.workerID),
		slog.String("job_type", msg.JobType),
		slog.String("job_id", msg.JobID),
		slog.Duration("duration", duration),
	)

	return nil
}
