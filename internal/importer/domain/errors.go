package domain

import "errors"

var (
	// ErrJobNotFound is returned when an import job cannot be found in the database
	ErrJobNotFound = errors.New("import job not found")

	// ErrJobAlreadyClaimed is returned when attempting to claim a job that's already claimed
	ErrJobAlreadyClaimed = errors.New("import job already claimed or not in pending status")

	// ErrMissingHeader is returned when the CSV input has no header row
	ErrMissingHeader = errors.New("csv input has no header row")

	// ErrUnknownJobType is returned when a queue message names a job type the worker cannot execute
	ErrUnknownJobType = errors.New("unknown job type")
)

// DecodeError wraps a run-level failure reading or parsing the CSV source.
// It is fatal to the run before any batch is produced.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode error: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewDecodeError creates a new decode error
func NewDecodeError(err error) error {
	return &DecodeError{Err: err}
}

// StoreError wraps a batch-level persistence failure. It is fatal to the run;
// batches committed before the failure stay committed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "store error during " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new store error
func NewStoreError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
