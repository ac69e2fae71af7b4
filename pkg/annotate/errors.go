package annotate

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrRecordNotFound indicates no record exists for the given key.
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateKey indicates a record with the same key already exists.
	// The ingress coordinator treats it as a benign idempotent retry.
	ErrDuplicateKey = errors.New("record key already exists")

	// ErrInvalidInput indicates bad caller input (4xx-equivalent, not retried).
	ErrInvalidInput = errors.New("invalid input")

	// ErrStoreUnavailable indicates the record store could not be reached.
	// Distinct from ErrRecordNotFound; callers must not conflate the two.
	ErrStoreUnavailable = errors.New("record store unavailable")

	// ErrSourceUnavailable indicates a worker could not fetch its source
	// object from blob storage. Transient; eligible for redelivery.
	ErrSourceUnavailable = errors.New("source object unavailable")
)

// StoreError wraps a record store failure with the operation and key.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store operation %s failed for key %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// StorageError wraps a blob storage failure with the operation and key.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// TransformError is a definitive transform failure: the content is blocked,
// corrupt, or otherwise unprocessable. Retrying will not change the outcome,
// so workers persist a failed status and do not signal for redelivery.
type TransformError struct {
	Reason string
	Err    error
}

func (e *TransformError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transform failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("transform failed: %s", e.Reason)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// IsTerminalFailure reports whether err is a definitive transform failure
// rather than a transient one worth redelivering.
func IsTerminalFailure(err error) bool {
	var te *TransformError
	return errors.As(err, &te)
}
