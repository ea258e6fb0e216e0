package types

import (
	"errors"
	"fmt"
)

// Storage errors.
var (
	ErrNotFound            = errors.New("entity not found")
	ErrReferentialConflict = errors.New("category is assigned to one or more projects")
	ErrInvalidCategory     = errors.New("category does not exist")
	ErrStoreClosed         = errors.New("store is closed")
	ErrUnknownTable        = errors.New("unknown table")
)

// Restore errors.
var (
	ErrInvalidArchive  = errors.New("invalid archive")
	ErrMissingManifest = errors.New("missing categories.json or projects.json in archive")
	ErrDuplicateKey    = errors.New("duplicate primary key in archive")
	ErrStoreNotEmpty   = errors.New("destination store is not empty")
)

// Upload failure reasons.
var (
	ErrUploadFailed = errors.New("error uploading favicon")
	ErrUploadType   = errors.New("invalid favicon file type")
	ErrUploadSave   = errors.New("failed to save favicon file")
)

// ValidationError reports user input that was rejected before any write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError returns a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// UploadError reports a rejected or failed favicon upload. Reason is one of
// ErrUploadFailed, ErrUploadType or ErrUploadSave.
type UploadError struct {
	Reason error
	Err    error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason.Error()
}

func (e *UploadError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Reason, e.Err}
	}
	return []error{e.Reason}
}
