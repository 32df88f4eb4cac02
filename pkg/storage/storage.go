// Package storage implements file operations rooted at a configured base
// directory: existence checks, reads with charset autodetection, writes with
// a backup-on-overwrite collision policy, JSON round-trips, recursive copies
// with exclusion patterns, and a guarded recursive delete.
//
// The root directory, default extension and default encoding come from a
// config.Provider that is consulted on every call, so reconfiguration takes
// effect immediately. Operations are synchronous; callers serialize
// concurrent access to the same logical file.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mcore-ai/mcore/pkg/audit"
	"github.com/mcore-ai/mcore/pkg/charset"
	"github.com/mcore-ai/mcore/pkg/config"
	"github.com/mcore-ai/mcore/pkg/metrics"
)

// Sentinel errors reported by storage operations.
var (
	// ErrOutsideRoot is returned by Clean for paths that do not resolve to a
	// strict descendant of the storage root.
	ErrOutsideRoot = errors.New("cannot delete directories outside the storage path")

	// ErrIsDirectory is returned by Delete when the name resolves to a directory.
	ErrIsDirectory = errors.New("is a directory")
)

// Storage performs file operations under the configured root directory.
type Storage struct {
	provider config.Provider
	logger   *slog.Logger
	metrics  metrics.Collector
	audit    audit.Recorder
}

// Option configures a Storage.
type Option func(*Storage)

// WithLogger sets the logger for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Storage) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the collector that receives operation metrics.
func WithMetrics(c metrics.Collector) Option {
	return func(s *Storage) {
		if c != nil {
			s.metrics = c
		}
	}
}

// WithAudit sets the recorder that receives mutation events.
func WithAudit(r audit.Recorder) Option {
	return func(s *Storage) {
		if r != nil {
			s.audit = r
		}
	}
}

// New creates a Storage reading its settings from provider on every
// operation. A nil provider uses the built-in defaults.
func New(provider config.Provider, opts ...Option) *Storage {
	if provider == nil {
		provider = config.Static(config.Default())
	}
	s := &Storage{
		provider: provider,
		logger:   slog.New(slog.DiscardHandler),
		metrics:  metrics.NewNoopCollector(),
		audit:    audit.NewNoopRecorder(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the current storage root directory.
func (s *Storage) Root() string {
	return s.provider().StoragePath
}

// AbsPath resolves name against the storage root. Absolute names are
// returned unchanged.
func (s *Storage) AbsPath(name string) string {
	return resolve(s.provider(), name)
}

func resolve(cfg config.Config, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(cfg.StoragePath, name)
}

// Exists reports whether name resolves to an existing file or directory.
func (s *Storage) Exists(name string) bool {
	_, err := os.Stat(s.AbsPath(name))
	return err == nil
}

// Read returns the content of name, auto-detecting the charset from the
// stored bytes. A relative name without a dot gains the configured default
// extension when that candidate exists, otherwise the bare name is read.
// Absolute and "./"-prefixed names are opened verbatim, the latter relative
// to the process working directory rather than the storage root.
func (s *Storage) Read(name string) (content string, err error) {
	defer s.observe("read", time.Now(), &err)
	return s.readFile(name, "")
}

// ReadEncoded is Read with an explicit charset instead of autodetection.
func (s *Storage) ReadEncoded(name, encoding string) (content string, err error) {
	defer s.observe("read", time.Now(), &err)
	return s.readFile(name, encoding)
}

func (s *Storage) readFile(name, encoding string) (string, error) {
	path := s.readPath(name)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	content, err := charset.Decode(data, encoding)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return content, nil
}

// readPath applies the extension defaulting rules for reads.
func (s *Storage) readPath(name string) string {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "./") {
		return name
	}
	cfg := s.provider()
	if strings.Contains(name, ".") {
		return resolve(cfg, name)
	}
	// Bare name: prefer the default extension when that candidate exists.
	if ext := cfg.FileExt(); ext != "" {
		candidate := resolve(cfg, name+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return resolve(cfg, name)
}

// WriteOption adjusts a single write operation.
type WriteOption func(*writeOptions)

type writeOptions struct {
	rewrite  bool
	backup   bool
	encoding string
}

// NoRewrite preserves an existing target; the content lands at the next free
// numbered sibling instead.
func NoRewrite() WriteOption {
	return func(o *writeOptions) { o.rewrite = false }
}

// NoBackup overwrites an existing target in place instead of renaming it to
// a numbered sibling first.
func NoBackup() WriteOption {
	return func(o *writeOptions) { o.backup = false }
}

// WithEncoding encodes the content with the named charset instead of the
// configured default.
func WithEncoding(name string) WriteOption {
	return func(o *writeOptions) { o.encoding = name }
}

// Write stores content under name and returns the file name actually
// written. That name can differ from the request: a name without an
// extension gains the configured default, and a collision with an existing
// file is resolved through the rewrite/backup policy.
//
// By default an existing target is renamed to the first free <base>_<n><ext>
// sibling and the content is written under the requested name, so earlier
// versions survive as numbered backups. With NoRewrite the existing target
// is left alone and the content goes to the numbered sibling; with NoBackup
// the target is overwritten in place.
func (s *Storage) Write(name, content string, opts ...WriteOption) (written string, err error) {
	defer s.observe("write", time.Now(), &err)
	return s.write(s.provider(), name, content, opts)
}

// WriteOut stores content under the default output name ("out" plus the
// configured extension), for dumps where the name does not matter.
func (s *Storage) WriteOut(content string, opts ...WriteOption) (written string, err error) {
	defer s.observe("write", time.Now(), &err)
	cfg := s.provider()
	return s.write(cfg, "out"+cfg.FileExt(), content, opts)
}

func (s *Storage) write(cfg config.Config, name, content string, opts []WriteOption) (string, error) {
	o := writeOptions{rewrite: true, backup: true, encoding: cfg.DefaultEncoding}
	for _, opt := range opts {
		opt(&o)
	}

	name = filepath.Clean(name)
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if ext == "" {
		ext = cfg.FileExt()
	}

	fileName := base + ext
	target := resolve(cfg, fileName)
	if isRegularFile(target) && (o.backup || !o.rewrite) {
		var numbered string
		for n := 1; ; n++ {
			numbered = fmt.Sprintf("%s_%d%s", base, n, ext)
			if !isRegularFile(resolve(cfg, numbered)) {
				break
			}
		}
		if !o.rewrite {
			fileName = numbered
			target = resolve(cfg, fileName)
		} else {
			backupStart := time.Now()
			if err := os.Rename(target, resolve(cfg, numbered)); err != nil {
				return "", fmt.Errorf("failed to back up %s: %w", fileName, err)
			}
			s.metrics.RecordStage(context.Background(), "write", "backup", time.Since(backupStart).Milliseconds())
			s.logger.Debug("backed up existing file", "from", fileName, "to", numbered)
			s.record("backup", fileName, map[string]any{"to": numbered})
		}
	}

	data, err := charset.Encode(content, o.encoding)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", fileName, err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create parent directory for %s: %w", fileName, err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", fileName, err)
	}
	s.logger.Debug("wrote file", "file", fileName, "bytes", len(data))
	s.record("write", fileName, map[string]any{"bytes": len(data)})
	return fileName, nil
}

// Delete removes the file at name. A missing file or a directory is an
// error; Clean removes directories.
func (s *Storage) Delete(name string) (err error) {
	defer s.observe("delete", time.Now(), &err)
	target := s.AbsPath(name)
	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", target, err)
	}
	if info.IsDir() {
		return fmt.Errorf("failed to delete %s: %w", target, ErrIsDirectory)
	}
	if err := os.Remove(target); err != nil {
		return fmt.Errorf("failed to delete %s: %w", target, err)
	}
	s.logger.Debug("deleted file", "file", name)
	s.record("delete", name, nil)
	return nil
}

// Clean recursively removes the directory at path. The path must resolve to
// a strict descendant of the storage root; anything else, including the root
// itself, returns ErrOutsideRoot before touching the filesystem. A missing
// path or a plain file is a no-op.
func (s *Storage) Clean(path string) (err error) {
	defer s.observe("clean", time.Now(), &err)
	cfg := s.provider()
	root, err := filepath.Abs(cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("failed to resolve storage root: %w", err)
	}
	full, err := filepath.Abs(resolve(cfg, path))
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%s: %w", path, ErrOutsideRoot)
	}
	info, statErr := os.Stat(full)
	if statErr != nil || !info.IsDir() {
		return nil
	}
	if err := os.RemoveAll(full); err != nil {
		return fmt.Errorf("failed to remove %s: %w", full, err)
	}
	s.logger.Debug("cleaned directory", "path", rel)
	s.record("clean", rel, nil)
	return nil
}

// FileLink returns a file:// link to the resolved name, clickable in most
// terminals and IDE consoles.
func (s *Storage) FileLink(name string) string {
	path := s.AbsPath(name)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "file://" + filepath.ToSlash(path)
}

// observe reports the outcome of an operation to the metrics collector.
func (s *Storage) observe(op string, start time.Time, errp *error) {
	ctx := context.Background()
	status := "success"
	if *errp != nil {
		status = "error"
		s.metrics.RecordError(ctx, op, metrics.ClassifyError(*errp))
	}
	s.metrics.RecordOperation(ctx, op, status, time.Since(start).Milliseconds())
}

// record appends a mutation event to the audit trail.
func (s *Storage) record(op, name string, detail map[string]any) {
	event := &audit.Event{
		Timestamp: time.Now(),
		Operation: op,
		Name:      name,
		Detail:    detail,
	}
	if err := s.audit.Record(context.Background(), event); err != nil {
		s.logger.Warn("failed to record audit event", "operation", op, "error", err)
	}
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
