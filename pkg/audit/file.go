// Package audit records storage mutations as an append-only JSON Lines trail.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileRecorder appends events to a JSON Lines file with automatic rotation.
type FileRecorder struct {
	filePath        string
	maxSizeBytes    int64
	maxRotatedFiles int
	file            *os.File
	encoder         *json.Encoder
	mu              sync.Mutex
	closed          bool
}

// FileRecorderOption configures a FileRecorder.
type FileRecorderOption func(*FileRecorder)

// WithMaxSize sets the maximum file size before rotation (default: 10MB).
func WithMaxSize(bytes int64) FileRecorderOption {
	return func(fr *FileRecorder) {
		fr.maxSizeBytes = bytes
	}
}

// WithMaxRotatedFiles sets how many rotated files to keep (default: 5).
func WithMaxRotatedFiles(count int) FileRecorderOption {
	return func(fr *FileRecorder) {
		fr.maxRotatedFiles = count
	}
}

// NewFileRecorder creates a file-based audit recorder.
// The file is opened immediately and rotation is checked on each Record.
func NewFileRecorder(filePath string, opts ...FileRecorderOption) (*FileRecorder, error) {
	fr := &FileRecorder{
		filePath:        filePath,
		maxSizeBytes:    10 * 1024 * 1024, // 10MB default
		maxRotatedFiles: 5,
	}

	for _, opt := range opts {
		opt(fr)
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}

	fr.file = file
	fr.encoder = json.NewEncoder(file)

	return fr, nil
}

// Record writes an event as a JSON Lines entry and rotates the file when it
// exceeds the size threshold.
func (fr *FileRecorder) Record(ctx context.Context, event *Event) error {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if fr.closed {
		return fmt.Errorf("recorder closed")
	}

	if err := fr.encoder.Encode(event); err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}

	if err := fr.rotateIfNeeded(); err != nil {
		return fmt.Errorf("rotate audit file: %w", err)
	}

	return nil
}

// Close flushes and closes the audit file.
func (fr *FileRecorder) Close() error {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if fr.closed {
		return nil
	}

	fr.closed = true

	if fr.file != nil {
		if err := fr.file.Sync(); err != nil {
			fr.file.Close()
			return fmt.Errorf("sync audit file: %w", err)
		}
		return fr.file.Close()
	}

	return nil
}

// rotateIfNeeded checks file size and rotates if the threshold is exceeded.
// Must be called with lock held.
func (fr *FileRecorder) rotateIfNeeded() error {
	info, err := fr.file.Stat()
	if err != nil {
		return fmt.Errorf("stat audit file: %w", err)
	}

	if info.Size() < fr.maxSizeBytes {
		return nil
	}

	if err := fr.file.Close(); err != nil {
		return fmt.Errorf("close audit file for rotation: %w", err)
	}

	if err := fr.rotateFiles(); err != nil {
		return fmt.Errorf("rotate files: %w", err)
	}

	file, err := os.OpenFile(fr.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open new audit file after rotation: %w", err)
	}

	fr.file = file
	fr.encoder = json.NewEncoder(file)

	return nil
}

// rotateFiles shifts existing rotated files and moves the current file to .1.
// Must be called with lock held.
func (fr *FileRecorder) rotateFiles() error {
	// Delete oldest rotated file if at limit
	oldestPath := fmt.Sprintf("%s.%d", fr.filePath, fr.maxRotatedFiles)
	if _, err := os.Stat(oldestPath); err == nil {
		if err := os.Remove(oldestPath); err != nil {
			return fmt.Errorf("remove oldest rotated file: %w", err)
		}
	}

	// Shift existing rotated files: .N-1 -> .N
	for i := fr.maxRotatedFiles - 1; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", fr.filePath, i)
		newPath := fmt.Sprintf("%s.%d", fr.filePath, i+1)

		if _, err := os.Stat(oldPath); err == nil {
			if err := os.Rename(oldPath, newPath); err != nil {
				return fmt.Errorf("shift rotated file %s -> %s: %w", oldPath, newPath, err)
			}
		}
	}

	if err := os.Rename(fr.filePath, fmt.Sprintf("%s.%d", fr.filePath, 1)); err != nil {
		return fmt.Errorf("rotate current file to .1: %w", err)
	}

	return nil
}
