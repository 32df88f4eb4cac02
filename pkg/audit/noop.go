package audit

import "context"

// NoopRecorder discards all events. It is the default recorder when no audit
// trail is configured.
type NoopRecorder struct{}

// NewNoopRecorder creates a no-op recorder.
func NewNoopRecorder() *NoopRecorder {
	return &NoopRecorder{}
}

// Record does nothing.
func (n *NoopRecorder) Record(ctx context.Context, event *Event) error {
	return nil
}

// Close does nothing.
func (n *NoopRecorder) Close() error {
	return nil
}
