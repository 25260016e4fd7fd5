package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/catalogtools/importer/internal/api/storage"
	"github.com/catalogtools/importer/internal/importer"
	"github.com/catalogtools/importer/internal/importer/domain"
	"github.com/catalogtools/importer/internal/webhook"
	"github.com/catalogtools/importer/shared/postgresql"
)

// JobStore is the import-job persistence surface the handlers need. The
// importer storage implements it; tests substitute their own.
type JobStore interface {
	CreateJob(ctx context.Context, job *domain.ImportJob) error
	GetJob(ctx context.Context, jobID string) (*domain.ImportJob, error)
	MarkFailed(ctx context.Context, jobID, errorMessage string) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger          *slog.Logger
	DBClient        *postgresql.Client
	Storage         *storage.Storage
	Jobs            JobStore
	Runner          importer.Runner
	Webhooks        *webhook.Store
	Dispatcher      *webhook.Dispatcher
	SpoolDir        string
	SSEPollInterval time.Duration
}

// ProductHandler handles product catalog HTTP requests
type ProductHandler struct {
	logger  *slog.Logger
	storage *storage.Storage
	runner  importer.Runner
}

// NewProductHandler creates a new ProductHandler instance
func NewProductHandler(deps *Dependencies) *ProductHandler {
	return &ProductHandler{
		logger:  deps.Logger,
		storage: deps.Storage,
		runner:  deps.Runner,
	}
}

// ImportHandler handles CSV upload submission and import-job status requests
type ImportHandler struct {
	logger       *slog.Logger
	storage      *storage.Storage
	jobs         JobStore
	runner       importer.Runner
	spoolDir     string
	pollInterval time.Duration
}

// NewImportHandler creates a new ImportHandler instance
func NewImportHandler(deps *Dependencies) *ImportHandler {
	pollInterval := deps.SSEPollInterval
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &ImportHandler{
		logger:       deps.Logger,
		storage:      deps.Storage,
		jobs:         deps.Jobs,
		runner:       deps.Runner,
		spoolDir:     deps.SpoolDir,
		pollInterval: pollInterval,
	}
}

// WebhookHandler handles webhook registration HTTP requests
type WebhookHandler struct {
	logger     *slog.Logger
	webhooks   *webhook.Store
	dispatcher *webhook.Dispatcher
}

// NewWebhookHandler creates a new WebhookHandler instance
func NewWebhookHandler(deps *Dependencies) *WebhookHandler {
	return &WebhookHandler{
		logger:     deps.Logger,
		webhooks:   deps.Webhooks,
		dispatcher: deps.Dispatcher,
	}
}
