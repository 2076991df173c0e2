package engine

import (
	"errors"
	"fmt"
)

// PersistenceError reports an append that failed after the batch had
// already been applied in memory. Until the caller intervenes the
// document holds state the log does not.
type PersistenceError struct {
	BatchSize int
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist batch of %d events: %v", e.BatchSize, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsPersistenceError reports whether err is (or wraps) a PersistenceError.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
