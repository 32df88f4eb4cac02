package texts

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/mcore-ai/mcore/pkg/metrics"
)

// SQLiteDB is an EmbeddingDB persisted in a local SQLite database. The
// pure-Go driver keeps the module cgo-free.
type SQLiteDB struct {
	// Metrics receives storage counts after mutations. Defaults to a no-op
	// collector; assign before use to override.
	Metrics metrics.Collector

	db       *sql.DB
	embedder Embedder
}

// NewSQLiteDB opens or creates the database at dbPath, which can be a file
// path or ":memory:". A nil embedder is allowed; texts are then stored
// without vectors and only GetAll and Clear work.
func NewSQLiteDB(dbPath string, embedder Embedder) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteDB{
		Metrics:  metrics.NewNoopCollector(),
		db:       db,
		embedder: embedder,
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// initSchema creates the database schema if it doesn't exist.
func (s *SQLiteDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS texts (
		id TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		content TEXT NOT NULL,
		embedding BLOB,
		metadata TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_texts_collection ON texts(collection);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Save stores a single text with optional metadata.
func (s *SQLiteDB) Save(ctx context.Context, collection, text string, metadata map[string]any) error {
	return s.SaveMany(ctx, collection, []Item{{Text: text, Metadata: metadata}})
}

// SaveMany stores a batch of texts, embedding them in one call and inserting
// them in a single transaction.
func (s *SQLiteDB) SaveMany(ctx context.Context, collection string, items []Item) error {
	if len(items) == 0 {
		return nil
	}

	var embeddings [][]float32
	if s.embedder != nil {
		texts := make([]string, len(items))
		for i, item := range items {
			texts[i] = item.Text
		}
		var err error
		embeddings, err = s.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed texts: %w", err)
		}
		if len(embeddings) != len(items) {
			return fmt.Errorf("embedder returned %d vectors for %d texts", len(embeddings), len(items))
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, item := range items {
		var embeddingBytes []byte
		if embeddings != nil {
			embeddingBytes = serializeEmbedding(embeddings[i])
		}

		var metadataJSON []byte
		if item.Metadata != nil {
			metadataJSON, err = json.Marshal(item.Metadata)
			if err != nil {
				return fmt.Errorf("failed to marshal metadata: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO texts (id, collection, content, embedding, metadata) VALUES (?, ?, ?, ?, ?)`,
			uuid.New().String(), collection, item.Text, embeddingBytes, metadataJSON,
		)
		if err != nil {
			return fmt.Errorf("failed to insert text: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.Metrics.SetStorageCount(ctx, collection, s.count(ctx, collection))
	return nil
}

// Search returns the stored texts most similar to query, best first.
func (s *SQLiteDB) Search(ctx context.Context, collection, query string, opts SearchOptions) ([]SearchResult, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("embedder is required for search")
	}
	ApplyDefaults(&opts)

	queryEmbedding, err := s.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	candidates, err := s.load(ctx, collection)
	if err != nil {
		return nil, err
	}

	results := []SearchResult{}
	for _, c := range candidates {
		if len(opts.Where) > 0 && !metadataMatches(c.Metadata, opts.Where) {
			continue
		}
		c.Score = CosineSimilarity(queryEmbedding, c.embedding)
		results = append(results, c.SearchResult)
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
func (s *SQLiteDB) GetAll(ctx context.Context, collection string) ([]SearchResult, error) {
	candidates, err := s.load(ctx, collection)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, c.SearchResult)
	}
	return results, nil
}

// Clear removes the collection and everything stored in it.
func (s *SQLiteDB) Clear(ctx context.Context, collection string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM texts WHERE collection = ?`, collection)
	if err != nil {
		return fmt.Errorf("failed to clear collection: %w", err)
	}
	s.Metrics.SetStorageCount(ctx, collection, 0)
	return nil
}

// Close closes the database connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

type candidate struct {
	SearchResult
	embedding []float32
}

// load reads all rows of a collection in insertion order.
func (s *SQLiteDB) load(ctx context.Context, collection string) ([]candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, embedding, metadata FROM texts WHERE collection = ? ORDER BY rowid`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query texts: %w", err)
	}
	defer rows.Close()

	var candidates []candidate
	for rows.Next() {
		var (
			c             candidate
			embeddingBlob []byte
			metadataJSON  sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Text, &embeddingBlob, &metadataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan text row: %w", err)
		}
		c.embedding = deserializeEmbedding(embeddingBlob)
		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &c.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate text rows: %w", err)
	}
	return candidates, nil
}

func (s *SQLiteDB) count(ctx context.Context, collection string) int64 {
	var n int64
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM texts WHERE collection = ?`, collection)
	if err := row.Scan(&n); err != nil {
		return 0
	}
	return n
}

// serializeEmbedding converts a float32 slice to a little-endian byte blob.
func serializeEmbedding(embedding []float32) []byte {
	if len(embedding) == 0 {
		return nil
	}
	blob := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeEmbedding converts a little-endian byte blob back to float32s.
func deserializeEmbedding(blob []byte) []float32 {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil
	}
	embedding := make([]float32, len(blob)/4)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return embedding
}
