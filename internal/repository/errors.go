package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound the requested row does not exist
var ErrNotFound = errors.New("record not found")

// PersistenceError wraps any storage failure with the operation that hit it
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return "persistence: " + e.Op + ": " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrNotFound
	}
	return &PersistenceError{Op: op, Err: err}
}
