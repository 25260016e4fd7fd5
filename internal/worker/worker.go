package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/catalogtools/importer/internal/importer"
	"github.com/catalogtools/importer/internal/importer/domain"
	"github.com/catalogtools/importer/shared/rabbitmq"
	"github.com/google/uuid"
)

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	RabbitClient  *rabbitmq.Client
	Executor      *importer.Executor
	Concurrency   int
	PrefetchCount int
	JobTimeout    time.Duration
	QueueName     string
	WorkerID      string
}

// Worker consumes job messages from RabbitMQ and executes them on a pool of
// goroutines. Each job runs to a terminal tracker state before its message is
// acknowledged.
type Worker struct {
	logger        *slog.Logger
	rabbitClient  *rabbitmq.Client
	executor      *importer.Executor
	concurrency   int
	prefetchCount int
	jobTimeout    time.Duration
	queueName     string
	workerID      string
	jobsChan      chan *domain.JobMessage
	wg            sync.WaitGroup
	stopChan      chan struct{}
}

// GenerateWorkerID produces a unique identity for one worker instance. The
// same identity must be used for job claims and for message consumption, so
// callers generate it before wiring either side.
func GenerateWorkerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "worker"
	}
	return fmt.Sprintf("%s-%s", hostname, uuid.New().String()[:8])
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	workerID := cfg.WorkerID
	if workerID == "" {
		workerID = GenerateWorkerID()
	}

	return &Worker{
		logger:        cfg.Logger,
		rabbitClient:  cfg.RabbitClient,
		executor:      cfg.Executor,
		concurrency:   cfg.Concurrency,
		prefetchCount: cfg.PrefetchCount,
		jobTimeout:    cfg.JobTimeout,
		queueName:     cfg.QueueName,
		workerID:      workerID,
		jobsChan:      make(chan *domain.JobMessage),
		stopChan:      make(chan struct{}),
	}
}

// WorkerID returns the identity this instance claims jobs under.
func (w *Worker) WorkerID() string {
	return w.workerID
}

// Start begins consuming and processing jobs. It blocks until the context is
// canceled or the delivery channel closes.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.setupConsumer(ctx)
	if err != nil {
		return fmt.Errorf("failed to set up consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)
	w.startMessageDispatcher(ctx, deliveries)

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
