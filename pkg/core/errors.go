package core

import (
	"errors"
	"fmt"
)

// Common errors. Stores classify driver failures into these so callers can use errors.Is.
var (
	ErrConnection = errors.New("store is unreachable")
	ErrAuth       = errors.New("credential is invalid or missing")
	ErrPermission = errors.New("credential lacks write access")
	ErrValidation = errors.New("record is not valid for the store")
	ErrNotFound   = errors.New("document not found")
)

// WriteError reports the failure of one write in a bulk run.
type WriteError struct {
	Collection string
	ID         string
	Err        error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s/%s: %v", e.Collection, e.ID, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
