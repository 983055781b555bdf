// Package errors provides structured error types for the sitetrack engine.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrTimeout      = errors.New("operation timed out")
	ErrNotFound     = errors.New("resource not found")
	ErrRateLimit    = errors.New("rate limit exceeded")
	ErrUnavailable  = errors.New("service unavailable")
	ErrInvalidInput = errors.New("invalid input")
)

// APIError represents an error from the tracking backend.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: backend error (status %d): %s: %v", e.Endpoint, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: backend error (status %d): %s", e.Endpoint, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// NewAPIError creates a new backend API error.
func NewAPIError(endpoint string, statusCode int, message string) *APIError {
	return &APIError{Endpoint: endpoint, StatusCode: statusCode, Message: message}
}

// MalformedRecordError marks a raw record that normalized to an unusable
// identity (no resolvable id). Bulk operations skip the record and collect
// this error instead of failing mid-loop.
type MalformedRecordError struct {
	Index int
	Title string
}

func (e *MalformedRecordError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("record %d (%q): no resolvable id", e.Index, e.Title)
	}
	return fmt.Sprintf("record %d: no resolvable id", e.Index)
}

// SelfDependencyError marks a task that declares itself as its own
// dependency. The edge is rejected but the condition is surfaced, never
// silently dropped.
type SelfDependencyError struct {
	TaskID string
}

func (e *SelfDependencyError) Error() string {
	return fmt.Sprintf("task %s depends on itself", e.TaskID)
}

// IsNotFound reports whether err is a not-found backend response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
		return true
	}
	return errors.Is(err, ErrNotFound)
}

// IsRetryable returns true if the error is likely transient and worth retrying.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
		return false
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimit) || errors.Is(err, ErrUnavailable)
}
