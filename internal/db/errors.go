package db

import "fmt"

// PersistenceError wraps a failed gateway operation
type PersistenceError struct {
	Op    string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error during %s: %v", e.Op, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

func opError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Cause: err}
}
