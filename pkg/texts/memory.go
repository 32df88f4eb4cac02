package texts

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mcore-ai/mcore/pkg/metrics"
)

// MemoryDB is an in-memory EmbeddingDB. It provides thread-safe access via
// RWMutex and does not persist texts across restarts.
type MemoryDB struct {
	// Metrics receives storage counts after mutations. Defaults to a no-op
	// collector; assign before use to override.
	Metrics metrics.Collector

	embedder    Embedder
	mu          sync.RWMutex
	collections map[string][]record
}

type record struct {
	id        string
	text      string
	embedding []float32
	metadata  map[string]any
}

// NewMemoryDB creates an in-memory text store. A nil embedder is allowed;
// texts are then stored without vectors and only GetAll and Clear work.
func NewMemoryDB(embedder Embedder) *MemoryDB {
	return &MemoryDB{
		Metrics:     metrics.NewNoopCollector(),
		embedder:    embedder,
		collections: make(map[string][]record),
	}
}

// Save stores a single text with optional metadata.
func (m *MemoryDB) Save(ctx context.Context, collection, text string, metadata map[string]any) error {
	return m.SaveMany(ctx, collection, []Item{{Text: text, Metadata: metadata}})
}

// SaveMany stores a batch of texts, embedding them in one call.
func (m *MemoryDB) SaveMany(ctx context.Context, collection string, items []Item) error {
	if len(items) == 0 {
		return nil
	}

	var embeddings [][]float32
	if m.embedder != nil {
		texts := make([]string, len(items))
		for i, item := range items {
			texts[i] = item.Text
		}
		var err error
		embeddings, err = m.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed texts: %w", err)
		}
		if len(embeddings) != len(items) {
			return fmt.Errorf("embedder returned %d vectors for %d texts", len(embeddings), len(items))
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, item := range items {
		rec := record{
			id:       uuid.New().String(),
			text:     item.Text,
			metadata: item.Metadata,
		}
		if embeddings != nil {
			// Copy to avoid external mutations
			rec.embedding = make([]float32, len(embeddings[i]))
			copy(rec.embedding, embeddings[i])
		}
		m.collections[collection] = append(m.collections[collection], rec)
	}
	m.Metrics.SetStorageCount(ctx, collection, int64(len(m.collections[collection])))
	return nil
}

// Search returns the stored texts most similar to query, best first.
func (m *MemoryDB) Search(ctx context.Context, collection, query string, opts SearchOptions) ([]SearchResult, error) {
	if m.embedder == nil {
		return nil, fmt.Errorf("embedder is required for search")
	}
	ApplyDefaults(&opts)

	queryEmbedding, err := m.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := []SearchResult{}
	for _, rec := range m.collections[collection] {
		if len(opts.Where) > 0 && !metadataMatches(rec.metadata, opts.Where) {
			continue
		}
		results = append(results, SearchResult{
			ID:       rec.id,
			Text:     rec.text,
			Score:    CosineSimilarity(queryEmbedding, rec.embedding),
			Metadata: rec.metadata,
		})
	}

	// Sort by score descending
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if opts.NResults < len(results) {
		results = results[:opts.NResults]
	}
	return results, nil
}

// GetAll returns every text in the collection in insertion order.
func (m *MemoryDB) GetAll(ctx context.Context, collection string) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]SearchResult, 0, len(m.collections[collection]))
	for _, rec := range m.collections[collection] {
		results = append(results, SearchResult{
			ID:       rec.id,
			Text:     rec.text,
			Metadata: rec.metadata,
		})
	}
	return results, nil
}

// Clear removes the collection and everything stored in it.
func (m *MemoryDB) Clear(ctx context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.collections, collection)
	m.Metrics.SetStorageCount(ctx, collection, 0)
	return nil
}

// Close releases nothing for the in-memory store.
func (m *MemoryDB) Close() error {
	return nil
}
