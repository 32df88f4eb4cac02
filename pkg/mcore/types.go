package mcore

import (
	"github.com/mcore-ai/mcore/pkg/storage"
	"github.com/mcore-ai/mcore/pkg/texts"
)

// Type re-exports for caller convenience

// SearchResult is re-exported from texts package
type SearchResult = texts.SearchResult

// SearchOptions is re-exported from texts package
type SearchOptions = texts.SearchOptions

// Item is re-exported from texts package
type Item = texts.Item

// Embedder is re-exported from texts package
type Embedder = texts.Embedder

// EmbeddingDB is re-exported from texts package
type EmbeddingDB = texts.EmbeddingDB

// WriteOption is re-exported from storage package
type WriteOption = storage.WriteOption

// Write option constructors re-exported from storage package
var (
	NoRewrite    = storage.NoRewrite
	NoBackup     = storage.NoBackup
	WithEncoding = storage.WithEncoding
)

// Sentinel errors re-exported from storage package
var (
	ErrOutsideRoot = storage.ErrOutsideRoot
	ErrIsDirectory = storage.ErrIsDirectory
)
