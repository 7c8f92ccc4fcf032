package models

import (
	"errors"
	"fmt"
)

// ValidationError rejects a malformed scrape request before a job is created
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid request: %s", e.Message)
}

// NewValidationError creates a validation error for a request field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError indicates a job ID that does not exist in the registry
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("job not found: %s", e.ID)
}

// IsNotFound reports whether err is a job lookup miss
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// FatalStageError aborts the whole pipeline for a job. Per-item problems
// use ItemError instead and never carry this type.
type FatalStageError struct {
	Stage string
	Err   error
}

func (e *FatalStageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *FatalStageError) Unwrap() error {
	return e.Err
}

// NewFatalStageError wraps a stage-aborting failure
func NewFatalStageError(stage string, err error) *FatalStageError {
	return &FatalStageError{Stage: stage, Err: err}
}

// IsFatalStage reports whether err should abort the pipeline
func IsFatalStage(err error) bool {
	var fs *FatalStageError
	return errors.As(err, &fs)
}

// ItemError records a per-business failure that the pipeline skips over
type ItemError struct {
	Business string
	Stage    string
	Err      error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s failed for %q: %v", e.Stage, e.Business, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// ExportError indicates a download serialization failure
type ExportError struct {
	Format string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("%s export failed: %v", e.Format, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
