package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/catalogtools/importer/internal/importer/domain"
)

// Executor runs one queue message to completion. It is shared by the queued
// worker and the inline fallback so both modes execute identical logic.
type Executor struct {
	pipeline *Pipeline
	products ProductStore
	notifier Notifier
	logger   *slog.Logger
}

// NewExecutor creates an executor over the given pipeline and collaborators.
func NewExecutor(pipeline *Pipeline, products ProductStore, notifier Notifier, logger *slog.Logger) *Executor {
	return &Executor{
		pipeline: pipeline,
		products: products,
		notifier: notifier,
		logger:   logger,
	}
}

// Execute dispatches on the message's job type.
func (e *Executor) Execute(ctx context.Context, msg domain.JobMessage) error {
	switch msg.JobType {
	case domain.JobTypeCSVImport:
		return e.pipeline.Run(ctx, msg.JobID, NewFileSource(msg.FilePath))

	case domain.JobTypeBulkDelete:
		return e.bulkDelete(ctx)

	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownJobType, msg.JobType)
	}
}

func (e *Executor) bulkDelete(ctx context.Context) error {
	total, err := e.products.CountAll(ctx)
	if err != nil {
		return fmt.Errorf("count products for bulk delete: %w", err)
	}

	e.logger.Info("Starting bulk delete",
		slog.Int("product_count", total),
	)

	count, err := e.products.DeleteAll(ctx)
	if err != nil {
		return fmt.Errorf("bulk delete products: %w", err)
	}

	e.logger.Info("Bulk delete completed",
		slog.Int64("deleted_count", count),
	)

	e.notifier.Notify(ctx, EventBulkDelete, map[string]any{
		"deleted_count": count,
	})

	return nil
}
