package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a StaticForge error code.
type ErrorCode string

const (
	ErrInvalidRequest        ErrorCode = "INVALID_REQUEST"        // 400
	ErrNotFound              ErrorCode = "NOT_FOUND"              // 404
	ErrStorageFull           ErrorCode = "STORAGE_FULL"           // 507
	ErrCredentialUnavailable ErrorCode = "CREDENTIAL_UNAVAILABLE" // 502
	ErrPublishFailed         ErrorCode = "PUBLISH_FAILED"         // 502
	ErrGenerationFailed      ErrorCode = "GENERATION_FAILED"      // 502
	ErrDeserialization       ErrorCode = "DESERIALIZATION"        // 500
	ErrInternal              ErrorCode = "INTERNAL"               // 500
)

// ForgeError represents a structured error with code, status, and details.
type ForgeError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *ForgeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ForgeError {
	return &ForgeError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a page cannot be found.
func NewNotFound(id string) *ForgeError {
	return &ForgeError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("page not found: %s", id),
		Details: map[string]any{"id": id},
	}
}

// NewStorageFull creates a 507 error when the local store cannot persist.
// The in-memory change is not retried; the caller decides what to do.
func NewStorageFull(err error) *ForgeError {
	msg := "local store is full; delete some pages to save new ones"
	if err != nil {
		msg = fmt.Sprintf("%s (%v)", msg, err)
	}
	return &ForgeError{
		Code:    ErrStorageFull,
		Status:  507,
		Message: msg,
	}
}

// NewCredentialUnavailable creates a 502 error when the publish token
// cannot be resolved from the secret store.
func NewCredentialUnavailable(reason string) *ForgeError {
	return &ForgeError{
		Code:    ErrCredentialUnavailable,
		Status:  502,
		Message: fmt.Sprintf("could not resolve publish credential: %s", reason),
	}
}

// NewPublishFailed creates a 502 error when the remote write is rejected.
// remoteMsg carries the remote-supplied reason when available.
func NewPublishFailed(remoteMsg string) *ForgeError {
	msg := "failed to publish page"
	if remoteMsg != "" {
		msg = remoteMsg
	}
	return &ForgeError{
		Code:    ErrPublishFailed,
		Status:  502,
		Message: msg,
	}
}

// NewGenerationFailed creates a 502 error when the generation service
// call errors. Original page content is never touched on this path.
func NewGenerationFailed(reason string) *ForgeError {
	msg := "failed to generate HTML content"
	if reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, reason)
	}
	return &ForgeError{
		Code:    ErrGenerationFailed,
		Status:  502,
		Message: msg,
	}
}

// NewDeserialization creates a 500 error for a corrupt persisted collection.
func NewDeserialization(err error) *ForgeError {
	return &ForgeError{
		Code:    ErrDeserialization,
		Status:  500,
		Message: fmt.Sprintf("corrupt persisted data: %v", err),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *ForgeError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &ForgeError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is (or wraps) a ForgeError with the given code.
func Is(err error, code ErrorCode) bool {
	var fErr *ForgeError
	if stderrors.As(err, &fErr) {
		return fErr.Code == code
	}
	return false
}
