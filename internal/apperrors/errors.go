// Package apperrors defines the structured error taxonomy used across the
// parser, index, and graph packages.
package apperrors

import (
	"errors"
	"fmt"
)

// Error codes for the hprof toolchain.
const (
	CodeMalformedInput      = "MALFORMED_INPUT"
	CodeInvalidUTF8         = "INVALID_UTF8"
	CodeFingerprintMismatch = "FINGERPRINT_MISMATCH"
	CodeIndexInconsistency  = "INDEX_INCONSISTENCY"
	CodeIOFailure           = "IO_FAILURE"
)

// AppError is a structured error carrying a stable code plus, where known,
// the byte offset and/or hprof id implicated in the failure.
type AppError struct {
	Code    string
	Message string
	Offset  int64
	HasOffset bool
	ID      uint64
	HasID   bool
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.HasOffset {
		msg = fmt.Sprintf("%s (offset=%d)", msg, e.Offset)
	}
	if e.HasID {
		msg = fmt.Sprintf("%s (id=%d)", msg, e.ID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target by code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an existing error with an AppError.
func Wrap(code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// WithOffset attaches the byte offset at which the error was detected.
func (e *AppError) WithOffset(offset int64) *AppError {
	e.Offset = offset
	e.HasOffset = true
	return e
}

// WithID attaches the hprof id implicated in the error.
func (e *AppError) WithID(id uint64) *AppError {
	e.ID = id
	e.HasID = true
	return e
}

// Malformed builds a CodeMalformedInput error.
func Malformed(message string) *AppError {
	return New(CodeMalformedInput, message)
}

// FingerprintMismatch builds a CodeFingerprintMismatch error.
func FingerprintMismatch(message string) *AppError {
	return New(CodeFingerprintMismatch, message)
}

// IndexInconsistency builds a CodeIndexInconsistency error.
func IndexInconsistency(message string) *AppError {
	return New(CodeIndexInconsistency, message)
}

// IOFailure wraps err as a CodeIOFailure error.
func IOFailure(message string, err error) *AppError {
	return Wrap(CodeIOFailure, message, err)
}

// Is{Code} helpers, following the teacher's per-kind predicate convention.

// IsMalformedInput reports whether err is a MalformedInput AppError.
func IsMalformedInput(err error) bool {
	return codeIs(err, CodeMalformedInput)
}

// IsFingerprintMismatch reports whether err is a FingerprintMismatch AppError.
func IsFingerprintMismatch(err error) bool {
	return codeIs(err, CodeFingerprintMismatch)
}

// IsIndexInconsistency reports whether err is an IndexInconsistency AppError.
func IsIndexInconsistency(err error) bool {
	return codeIs(err, CodeIndexInconsistency)
}

// IsIOFailure reports whether err is an IoFailure AppError.
func IsIOFailure(err error) bool {
	return codeIs(err, CodeIOFailure)
}

func codeIs(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Code extracts the error code from err, or CodeIOFailure if err does not
// carry a structured code (unexpected I/O errors bubbling up unwrapped).
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	if err != nil {
		return CodeIOFailure
	}
	return ""
}
