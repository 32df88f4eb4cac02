package audit

import (
	"context"
	"time"
)

// Recorder defines the interface for recording storage mutations.
// Implementations must be safe for concurrent use.
type Recorder interface {
	// Record appends a mutation event to the configured destination.
	Record(ctx context.Context, event *Event) error

	// Close flushes any buffered events and releases resources.
	// Should be called during graceful shutdown.
	Close() error
}

// Event describes one applied storage mutation. It carries file names and
// operation outcomes, never file content.
type Event struct {
	// Timestamp is the time the mutation completed
	Timestamp time.Time `json:"timestamp"`

	// Operation is the mutation type: "write", "backup", "delete", "clean", "copy"
	Operation string `json:"operation"`

	// Name is the logical file name as the caller gave it
	Name string `json:"name"`

	// Detail holds operation-specific values (backup target, byte count)
	Detail map[string]any `json:"detail,omitempty"`
}
