package metrics

import (
	"errors"
	"io/fs"
	"strings"
)

// Error type constants for classification
const (
	ErrTypeNotFound   = "not_found"
	ErrTypePermission = "permission"
	ErrTypeEncoding   = "encoding"
	ErrTypeDatabase   = "database"
	ErrTypeValidation = "validation"
	ErrTypeUnknown    = "unknown"
)

// ClassifyError inspects an error and returns its type classification.
// This enables grouping errors by category in metrics and audit records.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}

	// Check for filesystem errors
	if errors.Is(err, fs.ErrNotExist) {
		return ErrTypeNotFound
	}
	if errors.Is(err, fs.ErrPermission) {
		return ErrTypePermission
	}

	errStrLower := strings.ToLower(err.Error())

	// Check for charset errors
	if strings.Contains(errStrLower, "encoding") ||
		strings.Contains(errStrLower, "charset") ||
		strings.Contains(errStrLower, "decode") {
		return ErrTypeEncoding
	}

	// Check for database errors (SQLite specific)
	if strings.Contains(errStrLower, "sql") ||
		strings.Contains(errStrLower, "database") ||
		strings.Contains(errStrLower, "constraint") ||
		strings.Contains(errStrLower, "unique") && strings.Contains(errStrLower, "failed") {
		return ErrTypeDatabase
	}

	// Check for validation errors
	if strings.Contains(errStrLower, "validation") ||
		strings.Contains(errStrLower, "invalid") ||
		strings.Contains(errStrLower, "required") ||
		strings.Contains(errStrLower, "cannot be empty") ||
		strings.Contains(errStrLower, "must be") ||
		strings.Contains(errStrLower, "is a directory") ||
		strings.Contains(errStrLower, "outside the storage path") {
		return ErrTypeValidation
	}

	// Default to unknown
	return ErrTypeUnknown
}
