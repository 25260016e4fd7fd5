package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/catalogtools/importer/internal/api/model"
	"github.com/catalogtools/importer/internal/importer/domain"
	"github.com/catalogtools/importer/shared/postgresql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrProductNotFound is returned when a product cannot be found
var ErrProductNotFound = errors.New("product not found")

// ErrSKUConflict is returned when a create/update collides with an existing SKU
var ErrSKUConflict = errors.New("a product with this SKU already exists")

// pqUniqueViolation is the PostgreSQL error code for unique constraint violations.
const pqUniqueViolation = "23505"

// Storage handles the API service's database reads and writes.
type Storage struct {
	db *sqlx.DB
}

// NewStorage creates a new Storage instance.
func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

// ProductCursor is the keyset position for product pagination.
type ProductCursor struct {
	CreatedAt time.Time
	ID        int64
}

// ProductFilter narrows and pages the product listing.
type ProductFilter struct {
	SKU      string
	Name     string
	Search   string
	IsActive *bool
	PageSize int
	Cursor   *ProductCursor
}

// ListProducts returns up to PageSize+1 products matching the filter, newest
// first; the extra row signals another page exists.
func (s *Storage) ListProducts(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	query := `
		SELECT id, sku, name, description, price, is_active, created_at, updated_at
		FROM products
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.SKU != "" {
		query += fmt.Sprintf(" AND sku ILIKE $%d", argIdx)
		args = append(args, "%"+filter.SKU+"%")
		argIdx++
	}

	if filter.Name != "" {
		query += fmt.Sprintf(" AND name ILIKE $%d", argIdx)
		args = append(args, "%"+filter.Name+"%")
		argIdx++
	}

	if filter.Search != "" {
		query += fmt.Sprintf(" AND (sku ILIKE $%d OR name ILIKE $%d OR description ILIKE $%d)", argIdx, argIdx, argIdx)
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}

	if filter.IsActive != nil {
		query += fmt.Sprintf(" AND is_active = $%d", argIdx)
		args = append(args, *filter.IsActive)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.ID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, id DESC"

	// Fetch one extra to determine if there are more results
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var products []model.Product
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return products, nil
}

// GetProduct returns one product by ID.
func (s *Storage) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	query := `
		SELECT id, sku, name, description, price, is_active, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var product model.Product
	if err := s.db.GetContext(ctx, &product, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

// CreateProduct inserts one product. The SKU must already be normalized by
// the caller; a collision yields ErrSKUConflict.
func (s *Storage) CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	query := `
		INSERT INTO products (sku, name, description, price, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, sku, name, description, price, is_active, created_at, updated_at
	`

	var created model.Product
	err := s.db.GetContext(ctx, &created, query, p.SKU, p.Name, p.Description, p.Price, p.IsActive)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSKUConflict
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return &created, nil
}

// UpdateProduct overwrites the mutable fields of one product.
func (s *Storage) UpdateProduct(ctx context.Context, id int64, p *model.Product) (*model.Product, error) {
	query := `
		UPDATE products
		SET sku = $1, name = $2, description = $3, price = $4, is_active = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING id, sku, name, description, price, is_active, created_at, updated_at
	`

	var updated model.Product
	err := s.db.GetContext(ctx, &updated, query, p.SKU, p.Name, p.Description, p.Price, p.IsActive, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrSKUConflict
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return &updated, nil
}

// DeleteProduct removes one product by ID.
func (s *Storage) DeleteProduct(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrProductNotFound
	}

	return nil
}

// ProductStats summarizes the catalog by active flag.
type ProductStats struct {
	Total    int `db:"total"`
	Active   int `db:"active"`
	Inactive int `db:"inactive"`
}

// GetProductStats returns catalog totals in a single query.
func (s *Storage) GetProductStats(ctx context.Context) (*ProductStats, error) {
	query := `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE is_active) AS active,
		       COUNT(*) FILTER (WHERE NOT is_active) AS inactive
		FROM products
	`

	var stats ProductStats
	if err := s.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to get product stats: %w", err)
	}

	return &stats, nil
}

// JobCursor is the keyset position for import-job pagination.
type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

// JobFilter narrows and pages the import-job listing.
type JobFilter struct {
	Status   string
	PageSize int
	Cursor   *JobCursor
}

// ListImportJobs returns up to PageSize+1 jobs matching the filter, newest first.
func (s *Storage) ListImportJobs(ctx context.Context, filter JobFilter) ([]domain.ImportJob, error) {
	query := `
		SELECT job_id, source_name, status,
		       total_rows, processed_rows, successful_rows, duplicate_rows, failed_rows,
		       COALESCE(error_message, '') AS error_message,
		       COALESCE(worker_id, '') AS worker_id,
		       created_at, updated_at
		FROM import_jobs
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, job_id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []domain.ImportJob
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list import jobs: %w", err)
	}

	return jobs, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pqUniqueViolation
	}
	return strings.Contains(err.Error(), "duplicate key value")
}
