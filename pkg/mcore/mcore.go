// Package mcore provides file storage and text search building blocks for LLM applications
package mcore

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcore-ai/mcore/pkg/audit"
	"github.com/mcore-ai/mcore/pkg/config"
	"github.com/mcore-ai/mcore/pkg/metrics"
	"github.com/mcore-ai/mcore/pkg/storage"
	"github.com/mcore-ai/mcore/pkg/texts"
)

// Config holds configuration for the mcore system
type Config struct {
	// Root directory for file storage (default: "storage")
	StoragePath string

	// Extension appended to names without one (default: ".txt")
	DefaultFileExt string

	// Charset used when writing text (default: "utf-8")
	DefaultEncoding string

	// SQLite database path for the texts backend; empty keeps texts in memory
	TextsDBPath string

	// Embedder turns texts into vectors for similarity search; without one
	// the texts backend stores and lists but cannot search
	Embedder texts.Embedder

	// Logger for storage operations (default: discard)
	Logger *slog.Logger

	// Metrics collector for operation counts and durations (default: no-op)
	Metrics metrics.Collector

	// AuditFile receives a JSON Lines trail of storage mutations; empty
	// disables the trail
	AuditFile string
}

// MCore is the main entry point for the library
type MCore struct {
	provider config.Provider
	storage  *storage.Storage
	texts    texts.EmbeddingDB
	audit    audit.Recorder
}

// New creates a new MCore instance with a fixed configuration
func New(cfg Config) (*MCore, error) {
	// Apply defaults
	base := config.Default()
	if cfg.StoragePath == "" {
		cfg.StoragePath = base.StoragePath
	}
	if cfg.DefaultFileExt == "" {
		cfg.DefaultFileExt = base.DefaultFileExt
	}
	if cfg.DefaultEncoding == "" {
		cfg.DefaultEncoding = base.DefaultEncoding
	}

	snapshot := config.Config{
		StoragePath:     cfg.StoragePath,
		DefaultFileExt:  cfg.DefaultFileExt,
		DefaultEncoding: cfg.DefaultEncoding,
	}
	if err := snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return newCore(config.Static(snapshot), cfg)
}

// NewFromEnv creates an MCore instance that re-reads MCORE_STORAGE_PATH,
// MCORE_DEFAULT_FILE_EXT, and MCORE_DEFAULT_ENCODING on every operation, so
// environment changes take effect at runtime. The current environment must
// already hold a valid configuration.
func NewFromEnv() (*MCore, error) {
	if err := config.FromEnv().Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return newCore(config.Env(), Config{})
}

func newCore(provider config.Provider, cfg Config) (*MCore, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	collector := cfg.Metrics
	if collector == nil {
		collector = metrics.NewNoopCollector()
	}

	var recorder audit.Recorder = audit.NewNoopRecorder()
	if cfg.AuditFile != "" {
		fileRecorder, err := audit.NewFileRecorder(cfg.AuditFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create audit recorder: %w", err)
		}
		recorder = fileRecorder
	}

	store := storage.New(provider,
		storage.WithLogger(logger),
		storage.WithMetrics(collector),
		storage.WithAudit(recorder),
	)

	var textsDB texts.EmbeddingDB
	if cfg.TextsDBPath != "" {
		db, err := texts.NewSQLiteDB(cfg.TextsDBPath, cfg.Embedder)
		if err != nil {
			recorder.Close()
			return nil, fmt.Errorf("failed to open texts database: %w", err)
		}
		db.Metrics = collector
		textsDB = db
	} else {
		db := texts.NewMemoryDB(cfg.Embedder)
		db.Metrics = collector
		textsDB = db
	}

	return &MCore{
		provider: provider,
		storage:  store,
		texts:    textsDB,
		audit:    recorder,
	}, nil
}

// GetStorage returns the configured file storage
func (m *MCore) GetStorage() *storage.Storage {
	return m.storage
}

// GetTexts returns the configured texts backend
func (m *MCore) GetTexts() texts.EmbeddingDB {
	return m.texts
}

// GetConfig returns the storage settings currently in effect
func (m *MCore) GetConfig() config.Config {
	return m.provider()
}

// Close releases the texts backend and the audit recorder
func (m *MCore) Close() error {
	return errors.Join(m.texts.Close(), m.audit.Close())
}
