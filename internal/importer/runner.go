package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/catalogtools/importer/internal/importer/domain"
	"github.com/catalogtools/importer/shared/rabbitmq"
)

// Runner schedules one job for execution. The strategy is resolved once at
// startup: queued when the message broker is available, inline otherwise.
// Both strategies drive the identical tracker state machine.
type Runner interface {
	Dispatch(ctx context.Context, msg domain.JobMessage) error
}

// QueuedRunner publishes the job message to RabbitMQ; a worker-service
// instance picks it up. The submitting call returns immediately.
type QueuedRunner struct {
	rabbit *rabbitmq.Client
	logger *slog.Logger
}

// NewQueuedRunner creates a queued runner over a connected RabbitMQ client.
func NewQueuedRunner(rabbit *rabbitmq.Client, logger *slog.Logger) *QueuedRunner {
	return &QueuedRunner{rabbit: rabbit, logger: logger}
}

func (r *QueuedRunner) Dispatch(ctx context.Context, msg domain.JobMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal job message: %w", err)
	}

	if err := r.rabbit.PublishWithRetry(ctx, body, "application/json"); err != nil {
		return fmt.Errorf("publish job message: %w", err)
	}

	r.logger.Info("Job queued",
		slog.String("job_type", msg.JobType),
		slog.String("job_id", msg.JobID),
	)

	return nil
}

// InlineRunner executes the job synchronously within the submitting call.
// Run-level failures are already resolved into the job tracker, so they are
// logged here rather than surfaced to the caller; caller-visible behavior
// matches queued mode.
type InlineRunner struct {
	exec   *Executor
	logger *slog.Logger
}

// NewInlineRunner creates an inline runner over an executor.
func NewInlineRunner(exec *Executor, logger *slog.Logger) *InlineRunner {
	return &InlineRunner{exec: exec, logger: logger}
}

func (r *InlineRunner) Dispatch(ctx context.Context, msg domain.JobMessage) error {
	r.logger.Info("Running job inline",
		slog.String("job_type", msg.JobType),
		slog.String("job_id", msg.JobID),
	)

	if err := r.exec.Execute(ctx, msg); err != nil {
		r.logger.Error("Inline job execution failed",
			slog.String("job_type", msg.JobType),
			slog.String("job_id", msg.JobID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}
