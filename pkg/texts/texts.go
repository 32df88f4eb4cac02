// Package texts provides similarity search over stored text collections.
//
// Backends keep texts with optional embedding vectors and rank them by
// cosine similarity against a query. Vectors come from a caller-supplied
// Embedder, so this package never talks to an embedding provider itself;
// applications plug in whatever client they already use.
package texts

import (
	"context"
	"math"
)

// Embedder turns texts into embedding vectors.
type Embedder interface {
	// Embed generates embeddings for multiple texts in one call.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedOne generates an embedding for a single text.
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// Item is a text queued for storage with optional metadata.
type Item struct {
	Text     string
	Metadata map[string]any
}

// SearchResult is a stored text ranked against a query.
type SearchResult struct {
	ID       string  // Stored item ID
	Text     string  // Stored text content
	Score    float64 // Cosine similarity score (higher is more similar)
	Metadata map[string]any
}

// SearchOptions configures a similarity search.
type SearchOptions struct {
	// NResults caps the number of results (default: 5).
	NResults int

	// Where filters candidates to items whose metadata matches every
	// key/value pair before ranking. Values stored through the SQLite
	// backend come back with JSON types, so numeric filters should use
	// float64 there.
	Where map[string]any
}

// ApplyDefaults sets default values for unspecified search options.
func ApplyDefaults(opts *SearchOptions) {
	if opts.NResults <= 0 {
		opts.NResults = 5
	}
}

// EmbeddingDB stores texts per collection and retrieves them by similarity.
// Implementations are safe for concurrent use.
type EmbeddingDB interface {
	// Save stores a single text with optional metadata.
	Save(ctx context.Context, collection, text string, metadata map[string]any) error

	// SaveMany stores a batch of texts, embedding them in one call.
	SaveMany(ctx context.Context, collection string, items []Item) error

	// Search returns the stored texts most similar to query, best first.
	Search(ctx context.Context, collection, query string, opts SearchOptions) ([]SearchResult, error)

	// GetAll returns every text in the collection in insertion order.
	GetAll(ctx context.Context, collection string) ([]SearchResult, error)

	// Clear removes the collection and everything stored in it.
	Clear(ctx context.Context, collection string) error

	// Close releases backend resources.
	Close() error
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical direction,
// 0 means orthogonal, and -1 means opposite direction.
// For normalized vectors (embeddings), the result is typically between 0 and 1.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	if len(a) == 0 {
		return 0.0
	}

	var dotProduct, normA, normB float64

	for i := 0; i < len(a); i++ {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// metadataMatches reports whether md satisfies every key/value pair in where.
func metadataMatches(md, where map[string]any) bool {
	for key, want := range where {
		got, ok := md[key]
		if !ok || got != want {
			return false
		}
	}
	return true
}
