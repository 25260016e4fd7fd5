package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/catalogtools/importer/internal/importer"
	"github.com/catalogtools/importer/internal/importer/domain"
	"github.com/jmoiron/sqlx"
)

// Storage handles all database operations for the ingestion pipeline: the
// product catalog side (importer.ProductStore) and the job tracker side
// (importer.JobTracker). ownerID identifies who claims jobs through this
// instance (a worker name, or "inline" for the synchronous fallback).
type Storage struct {
	db      *sqlx.DB
	logger  *slog.Logger
	ownerID string
}

// NewStorage creates a new Storage instance.
func NewStorage(db *sqlx.DB, logger *slog.Logger, ownerID string) *Storage {
	return &Storage{
		db:      db,
		logger:  logger,
		ownerID: ownerID,
	}
}

// SnapshotSKUs returns the set of normalized SKUs currently in the catalog.
func (s *Storage) SnapshotSKUs(ctx context.Context) (map[string]struct{}, error) {
	var skus []string
	if err := s.db.SelectContext(ctx, &skus, `SELECT sku FROM products`); err != nil {
		return nil, domain.NewStoreError("sku snapshot", err)
	}

	set := make(map[string]struct{}, len(skus))
	for _, sku := range skus {
		set[sku] = struct{}{}
	}
	return set, nil
}

// UpsertBatch applies one batch inside a single transaction: insert new SKUs,
// overwrite name/description/price/is_active and refresh updated_at for
// existing ones. created_at is preserved on conflict. Any error rolls the
// whole batch back and surfaces as a *domain.StoreError.
func (s *Storage) UpsertBatch(ctx context.Context, batch []domain.ProductRecord) error {
	if len(batch) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`
		INSERT INTO products (sku, name, description, price, is_active, created_at, updated_at)
		VALUES `)

	args := make([]interface{}, 0, len(batch)*5)
	for i, rec := range batch {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * 5
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, NOW(), NOW())", n+1, n+2, n+3, n+4, n+5)
		args = append(args, rec.SKU, rec.Name, rec.Description, rec.Price, rec.IsActive)
	}

	sb.WriteString(`
		ON CONFLICT (sku) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()`)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.NewStoreError("begin batch transaction", err)
	}

	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to roll back batch transaction",
				slog.String("error", rbErr.Error()),
			)
		}
		return domain.NewStoreError("batch upsert", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStoreError("commit batch transaction", err)
	}

	return nil
}

// CountAll returns the number of stored products.
func (s *Storage) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM products`); err != nil {
		return 0, domain.NewStoreError("count products", err)
	}
	return count, nil
}

// DeleteAll removes every product and returns the number removed.
func (s *Storage) DeleteAll(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products`)
	if err != nil {
		return 0, domain.NewStoreError("bulk delete", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, domain.NewStoreError("bulk delete rows affected", err)
	}
	return count, nil
}

// CreateJob inserts a new import job in pending status.
func (s *Storage) CreateJob(ctx context.Context, job *domain.ImportJob) error {
	query := `
		INSERT INTO import_jobs (
			job_id, source_name, status,
			total_rows, processed_rows, successful_rows, duplicate_rows, failed_rows,
			created_at, updated_at
		) VALUES ($1, $2, $3, 0, 0, 0, 0, 0, NOW(), NOW())
	`

	if _, err := s.db.ExecContext(ctx, query, job.JobID, job.SourceName, job.Status); err != nil {
		return fmt.Errorf("failed to create import job: %w", err)
	}

	return nil
}

// GetJob retrieves one import job by its ID.
func (s *Storage) GetJob(ctx context.Context, jobID string) (*domain.ImportJob, error) {
	query := `
		SELECT job_id, source_name, status,
		       total_rows, processed_rows, successful_rows, duplicate_rows, failed_rows,
		       error_message, worker_id, created_at, updated_at
		FROM import_jobs
		WHERE job_id = $1
	`

	var job domain.ImportJob
	var errorMessage, workerID sql.NullString

	err := s.db.QueryRowContext(ctx, query, jobID).Scan(
		&job.JobID,
		&job.SourceName,
		&job.Status,
		&job.TotalRows,
		&job.ProcessedRows,
		&job.SuccessfulRows,
		&job.DuplicateRows,
		&job.FailedRows,
		&errorMessage,
		&workerID,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get import job: %w", err)
	}

	job.ErrorMessage = errorMessage.String
	job.WorkerID = workerID.String

	return &job, nil
}

// MarkParsing claims the job using optimistic locking: only a pending job can
// move to parsing, so at most one run ever owns a tracker.
func (s *Storage) MarkParsing(ctx context.Context, jobID string) error {
	query := `
		UPDATE import_jobs
		SET status = $1,
		    worker_id = $2,
		    updated_at = NOW()
		WHERE job_id = $3
		  AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query, domain.JobStatusParsing, s.ownerID, jobID, domain.JobStatusPending)
	if err != nil {
		return fmt.Errorf("failed to claim import job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		s.logger.Warn("Failed to claim import job - already claimed or not found",
			slog.String("job_id", jobID),
			slog.String("owner_id", s.ownerID),
		)
		return domain.ErrJobAlreadyClaimed
	}

	s.logger.Info("Import job claimed",
		slog.String("job_id", jobID),
		slog.String("owner_id", s.ownerID),
	)

	return nil
}

// MarkImporting records the established row count and moves parsing -> importing.
func (s *Storage) MarkImporting(ctx context.Context, jobID string, totalRows int) error {
	query := `
		UPDATE import_jobs
		SET status = $1,
		    total_rows = $2,
		    updated_at = NOW()
		WHERE job_id = $3
		  AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query, domain.JobStatusImporting, totalRows, jobID, domain.JobStatusParsing)
	if err != nil {
		return fmt.Errorf("failed to mark import job importing: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("import job %s not in parsing status", jobID)
	}

	return nil
}

// UpdateProgress writes the counter snapshot for a running job.
func (s *Storage) UpdateProgress(ctx context.Context, jobID string, p importer.Progress) error {
	query := `
		UPDATE import_jobs
		SET processed_rows = $1,
		    successful_rows = $2,
		    duplicate_rows = $3,
		    failed_rows = $4,
		    updated_at = NOW()
		WHERE job_id = $5
	`

	if _, err := s.db.ExecContext(ctx, query, p.Processed, p.Successful, p.Duplicate, p.Failed, jobID); err != nil {
		return fmt.Errorf("failed to update import progress: %w", err)
	}

	return nil
}

// MarkCompleted transitions a non-terminal job to completed. The message is
// informational (set for empty input) and stored alongside the counters.
func (s *Storage) MarkCompleted(ctx context.Context, jobID, message string) error {
	query := `
		UPDATE import_jobs
		SET status = $1,
		    error_message = NULLIF($2, ''),
		    updated_at = NOW()
		WHERE job_id = $3
		  AND status NOT IN ($4, $5)
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.JobStatusCompleted, message, jobID,
		domain.JobStatusCompleted, domain.JobStatusFailed,
	)
	if err != nil {
		return fmt.Errorf("failed to complete import job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("import job %s already in terminal status", jobID)
	}

	s.logger.Info("Import job completed",
		slog.String("job_id", jobID),
	)

	return nil
}

// MarkFailed transitions a non-terminal job to failed with the captured cause.
func (s *Storage) MarkFailed(ctx context.Context, jobID, errorMessage string) error {
	query := `
		UPDATE import_jobs
		SET status = $1,
		    error_message = $2,
		    updated_at = NOW()
		WHERE job_id = $3
		  AND status NOT IN ($4, $5)
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.JobStatusFailed, errorMessage, jobID,
		domain.JobStatusCompleted, domain.JobStatusFailed,
	)
	if err != nil {
		return fmt.Errorf("failed to mark import job failed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		s.logger.Warn("Import job already terminal, failure not recorded",
			slog.String("job_id", jobID),
		)
	}

	return nil
}
