package mcore

import "github.com/mcore-ai/mcore/pkg/metrics"

// Error type constants for classification
const (
	ErrTypeNotFound   = metrics.ErrTypeNotFound
	ErrTypePermission = metrics.ErrTypePermission
	ErrTypeEncoding   = metrics.ErrTypeEncoding
	ErrTypeDatabase   = metrics.ErrTypeDatabase
	ErrTypeValidation = metrics.ErrTypeValidation
	ErrTypeUnknown    = metrics.ErrTypeUnknown
)

// ClassifyError inspects an error and returns its type classification.
// This enables grouping errors by category in metrics and audit trails.
func ClassifyError(err error) string {
	return metrics.ClassifyError(err)
}
