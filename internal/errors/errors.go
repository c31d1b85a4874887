// Package errors defines the handful of typed errors a caller of this
// module might want to branch on. Per spec.md §7, everything else — parse
// failures, missing files, unresolved names, cycles, unknown libraries — is
// internal recovery and never surfaces as an error value. Parse failures are
// logged to internal/diagnostics; the other conditions just yield empty
// results.
package errors

import (
	"fmt"
	"time"
)

// Type tags the small set of externally-relevant failure modes.
type Type string

const (
	TypeConfig   Type = "config"
	TypeArchive  Type = "archive"
	TypeInternal Type = "internal"
)

// ConfigError represents a problem loading or validating a Config.
type ConfigError struct {
	Field      string
	Path       string
	Underlying error
	Timestamp  time.Time
}

func NewConfigError(field, path string, err error) *ConfigError {
	return &ConfigError{Field: field, Path: path, Underlying: err, Timestamp: time.Now()}
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error for %s (%s): %v", e.Field, e.Path, e.Underlying)
	}
	return fmt.Sprintf("config error (%s): %v", e.Path, e.Underlying)
}

func (e *ConfigError) Unwrap() error { return e.Underlying }

// ArchiveError represents a YardMap documentation archive that could not be
// read or parsed. The caller logs this and proceeds without that library's
// documentation (spec.md §7 "Unknown library").
type ArchiveError struct {
	Library    string
	Path       string
	Underlying error
	Timestamp  time.Time
}

func NewArchiveError(library, path string, err error) *ArchiveError {
	return &ArchiveError{Library: library, Path: path, Underlying: err, Timestamp: time.Now()}
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive %s (%s) unreadable: %v", e.Library, e.Path, e.Underlying)
}

func (e *ArchiveError) Unwrap() error { return e.Underlying }

// NotInitializedError describes the "not yet initialized" failure mode, the
// second of the two externally visible failure modes spec.md §7 names. No
// function in this module returns it: ApiMap.Initialize reports Config
// errors as they are.
type NotInitializedError struct {
	Reason string
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("apimap not initialized: %s", e.Reason)
}

// MultiError aggregates independent failures (e.g. several archives
// skipped during one Load call) without losing any of them.
type MultiError struct {
	Errors []error
}

func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return &MultiError{Errors: filtered}
}

func (e *MultiError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

func (e *MultiError) Unwrap() []error { return e.Errors }
