package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/catalogtools/importer/internal/importer/domain"
)

// ProductStore is the persistent catalog collaborator.
type ProductStore interface {
	// SnapshotSKUs returns the set of normalized SKUs currently stored. The
	// pipeline takes this snapshot once at run start and never refreshes it;
	// the upsert's on-conflict semantics, not this snapshot, guarantee no
	// duplicate rows under concurrent runs.
	SnapshotSKUs(ctx context.Context) (map[string]struct{}, error)

	// UpsertBatch applies one unique-keyed batch atomically: insert new SKUs,
	// overwrite mutable fields for existing ones. Failures are reported as
	// *domain.StoreError and leave the batch fully unapplied.
	UpsertBatch(ctx context.Context, batch []domain.ProductRecord) error

	// CountAll returns the number of stored products.
	CountAll(ctx context.Context) (int, error)

	// DeleteAll removes every product and returns the number removed.
	DeleteAll(ctx context.Context) (int64, error)
}

// Progress is the counter snapshot written to the job tracker at batch
// boundaries.
type Progress struct {
	Processed  int
	Successful int
	Duplicate  int
	Failed     int
}

// JobTracker persists the state machine for one ingestion run. The pipeline
// is the only writer for the duration of the run; pollers read committed
// states only.
type JobTracker interface {
	// MarkParsing claims the job for this run (pending -> parsing). It returns
	// domain.ErrJobAlreadyClaimed when the job is not in pending status, which
	// guarantees at most one run per job across queued and inline modes.
	MarkParsing(ctx context.Context, jobID string) error

	// MarkImporting records the established row count (parsing -> importing).
	MarkImporting(ctx context.Context, jobID string, totalRows int) error

	// UpdateProgress writes the current counters.
	UpdateProgress(ctx context.Context, jobID string, p Progress) error

	// MarkCompleted transitions to completed with an optional informational
	// message (set for the empty-input case).
	MarkCompleted(ctx context.Context, jobID, message string) error

	// MarkFailed transitions to failed from any non-terminal status and
	// records the human-readable cause.
	MarkFailed(ctx context.Context, jobID, errorMessage string) error
}

// Notifier is the fire-and-forget notification collaborator. Delivery failure
// is never fatal to a run.
type Notifier interface {
	Notify(ctx context.Context, event string, payload map[string]any)
}

// Webhook event names emitted by ingestion and bulk operations.
const (
	EventProductImported = "product_imported"
	EventBulkDelete      = "bulk_delete"
)

const emptyInputMessage = "CSV file is empty or has no valid rows."

// Source is a transient readable input for one run. Open may be called more
// than once (the pipeline makes a counting pass and a processing pass);
// Cleanup releases the underlying resource regardless of outcome.
type Source interface {
	Open() (io.ReadCloser, error)
	Cleanup() error
}

// Pipeline drives one ingestion run end to end: decode, normalize,
// dedupe/batch, upsert, tracking the job at batch boundaries.
type Pipeline struct {
	products  ProductStore
	jobs      JobTracker
	notifier  Notifier
	logger    *slog.Logger
	batchSize int
}

// Config holds pipeline dependencies.
type Config struct {
	Products  ProductStore
	Jobs      JobTracker
	Notifier  Notifier
	Logger    *slog.Logger
	BatchSize int
}

// NewPipeline creates a pipeline instance.
func NewPipeline(cfg *Config) *Pipeline {
	size := cfg.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Pipeline{
		products:  cfg.Products,
		jobs:      cfg.Jobs,
		notifier:  cfg.Notifier,
		logger:    cfg.Logger,
		batchSize: size,
	}
}

// Run processes one submitted source to a terminal job state. Fatal errors
// are captured into the tracker and also returned so queued-mode callers can
// make their ACK/NACK decision; already-committed batches stay committed.
func (p *Pipeline) Run(ctx context.Context, jobID string, src Source) error {
	defer func() {
		if err := src.Cleanup(); err != nil {
			p.logger.Warn("Failed to clean up import source",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
		}
	}()

	// Claim the job. A claim conflict means another run owns this tracker.
	if err := p.jobs.MarkParsing(ctx, jobID); err != nil {
		if errors.Is(err, domain.ErrJobAlreadyClaimed) {
			p.logger.Warn("Import job already claimed, skipping",
				slog.String("job_id", jobID),
			)
			return fmt.Errorf("claim import job: %w", err)
		}
		return domain.NewRetryableError(fmt.Errorf("claim import job: %w", err))
	}

	total, err := p.countRows(src)
	if err != nil {
		return p.fail(ctx, jobID, Progress{}, err)
	}

	if total == 0 {
		p.logger.Info("Import source has no data rows",
			slog.String("job_id", jobID),
		)
		if err := p.jobs.MarkCompleted(ctx, jobID, emptyInputMessage); err != nil {
			return fmt.Errorf("complete empty import job: %w", err)
		}
		return nil
	}

	if err := p.jobs.MarkImporting(ctx, jobID, total); err != nil {
		return p.fail(ctx, jobID, Progress{}, fmt.Errorf("mark importing: %w", err))
	}

	existing, err := p.products.SnapshotSKUs(ctx)
	if err != nil {
		return p.fail(ctx, jobID, Progress{}, err)
	}

	p.logger.Info("Starting import run",
		slog.String("job_id", jobID),
		slog.Int("total_rows", total),
		slog.Int("existing_skus", len(existing)),
		slog.Int("batch_size", p.batchSize),
	)

	progress, err := p.importRows(ctx, jobID, src, existing)
	if err != nil {
		return p.fail(ctx, jobID, progress, err)
	}

	if err := p.jobs.UpdateProgress(ctx, jobID, progress); err != nil {
		return p.fail(ctx, jobID, progress, fmt.Errorf("update final progress: %w", err))
	}
	if err := p.jobs.MarkCompleted(ctx, jobID, ""); err != nil {
		return fmt.Errorf("complete import job: %w", err)
	}

	p.logger.Info("Import run completed",
		slog.String("job_id", jobID),
		slog.Int("processed", progress.Processed),
		slog.Int("successful", progress.Successful),
		slog.Int("duplicates", progress.Duplicate),
		slog.Int("failed", progress.Failed),
	)

	p.notifier.Notify(ctx, EventProductImported, map[string]any{
		"job_id":         jobID,
		"total_imported": progress.Successful,
		"total_failed":   progress.Failed,
	})

	return nil
}

// countRows makes the counting pass over the source to seed total_rows.
func (p *Pipeline) countRows(src Source) (int, error) {
	f, err := src.Open()
	if err != nil {
		return 0, domain.NewDecodeError(err)
	}
	defer f.Close()

	return CountRows(f)
}

// importRows makes the processing pass: one row at a time through the
// normalizer and batcher, flushing each closed batch through the store and
// reporting progress after every flush.
func (p *Pipeline) importRows(ctx context.Context, jobID string, src Source, existing map[string]struct{}) (Progress, error) {
	var progress Progress

	f, err := src.Open()
	if err != nil {
		return progress, domain.NewDecodeError(err)
	}
	defer f.Close()

	dec, err := NewDecoder(f)
	if err != nil {
		return progress, err
	}

	seenInFile := make(map[string]struct{})
	batcher := NewBatcher(p.batchSize)

	for {
		row, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return progress, err
		}

		progress.Processed++

		cand, ok := NormalizeRow(row, seenInFile, existing)
		if !ok {
			progress.Failed++
			continue
		}

		if cand.Class == domain.ClassNew {
			progress.Successful++
		} else {
			progress.Duplicate++
		}
		seenInFile[cand.Record.SKU] = struct{}{}

		if batch := batcher.Add(cand.Record); batch != nil {
			if err := p.flushBatch(ctx, jobID, batch, progress); err != nil {
				return progress, err
			}
		}
	}

	if batch := batcher.Flush(); batch != nil {
		if err := p.flushBatch(ctx, jobID, batch, progress); err != nil {
			return progress, err
		}
	}

	return progress, nil
}

func (p *Pipeline) flushBatch(ctx context.Context, jobID string, batch []domain.ProductRecord, progress Progress) error {
	if err := p.products.UpsertBatch(ctx, batch); err != nil {
		return err
	}

	p.logger.Debug("Batch flushed",
		slog.String("job_id", jobID),
		slog.Int("batch_size", len(batch)),
		slog.Int("processed", progress.Processed),
	)

	return p.jobs.UpdateProgress(ctx, jobID, progress)
}

// fail resolves a fatal error into the tracker: counters reflect progress up
// to the point of failure and error_message carries the cause. The tracker
// writes run on a context detached from ctx's cancellation so a job whose run
// timed out or was cancelled still reaches the failed state.
func (p *Pipeline) fail(ctx context.Context, jobID string, progress Progress, cause error) error {
	p.logger.Error("Import run failed",
		slog.String("job_id", jobID),
		slog.Int("processed", progress.Processed),
		slog.String("error", cause.Error()),
	)

	ctx = context.WithoutCancel(ctx)

	if err := p.jobs.UpdateProgress(ctx, jobID, progress); err != nil {
		p.logger.Error("Failed to record progress for failed run",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
	if err := p.jobs.MarkFailed(ctx, jobID, cause.Error()); err != nil {
		p.logger.Error("Failed to mark import job as failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}

	return cause
}
