package texts

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func setupTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(":memory:", newRankingEmbedder())
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteDB_SaveAndSearch(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, text := range []string{"cats purr softly", "dogs fetch balls", "rain is falling"} {
		if err := db.Save(ctx, "notes", text, nil); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	results, err := db.Search(ctx, "notes", "feline", SearchOptions{NResults: 2})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Text != "cats purr softly" {
		t.Errorf("Best match = %q, want %q", results[0].Text, "cats purr softly")
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("Scores not descending: %v then %v", results[0].Score, results[1].Score)
	}
}

func TestSQLiteDB_SearchWhereFilter(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	items := []Item{
		{Text: "cats purr softly", Metadata: map[string]any{"lang": "en"}},
		{Text: "dogs fetch balls", Metadata: map[string]any{"lang": "fr"}},
	}
	if err := db.SaveMany(ctx, "notes", items); err != nil {
		t.Fatalf("SaveMany failed: %v", err)
	}

	results, err := db.Search(ctx, "notes", "feline", SearchOptions{
		Where: map[string]any{"lang": "fr"},
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 filtered result, got %d", len(results))
	}
	if results[0].Text != "dogs fetch balls" {
		t.Errorf("Filtered result = %q, want %q", results[0].Text, "dogs fetch balls")
	}
}

func TestSQLiteDB_SearchWithoutEmbedder(t *testing.T) {
	db, err := NewSQLiteDB(":memory:", nil)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	_, err = db.Search(context.Background(), "notes", "anything", SearchOptions{})
	if err == nil {
		t.Fatal("Expected error when searching without an embedder")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("Error = %v, want mention of required embedder", err)
	}
}

func TestSQLiteDB_GetAllInsertionOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	texts := []string{"rain is falling", "cats purr softly", "dogs fetch balls"}
	for _, text := range texts {
		if err := db.Save(ctx, "notes", text, nil); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	results, err := db.GetAll(ctx, "notes")
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(results) != len(texts) {
		t.Fatalf("Expected %d results, got %d", len(texts), len(results))
	}
	for i, r := range results {
		if r.Text != texts[i] {
			t.Errorf("Result %d = %q, want %q", i, r.Text, texts[i])
		}
	}
}

func TestSQLiteDB_MetadataRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	metadata := map[string]any{"source": "chat", "turn": float64(3)}
	if err := db.Save(ctx, "notes", "cats purr softly", metadata); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	results, err := db.GetAll(ctx, "notes")
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].Metadata["source"] != "chat" {
		t.Errorf("Metadata source = %v, want %q", results[0].Metadata["source"], "chat")
	}
	// JSON numbers come back as float64
	if results[0].Metadata["turn"] != float64(3) {
		t.Errorf("Metadata turn = %v, want 3", results[0].Metadata["turn"])
	}
}

func TestSQLiteDB_Clear(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.Save(ctx, "notes", "cats purr softly", nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := db.Save(ctx, "other", "dogs fetch balls", nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := db.Clear(ctx, "notes"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	cleared, err := db.GetAll(ctx, "notes")
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(cleared) != 0 {
		t.Errorf("Expected cleared collection, got %d items", len(cleared))
	}

	kept, err := db.GetAll(ctx, "other")
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(kept) != 1 {
		t.Errorf("Clear removed items from another collection")
	}
}

func TestSQLiteDB_Persistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "texts.db")
	ctx := context.Background()

	db, err := NewSQLiteDB(dbPath, newRankingEmbedder())
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	if err := db.Save(ctx, "notes", "cats purr softly", map[string]any{"lang": "en"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteDB(dbPath, newRankingEmbedder())
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer reopened.Close()

	results, err := reopened.Search(ctx, "notes", "feline", SearchOptions{})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 persisted result, got %d", len(results))
	}
	if results[0].Text != "cats purr softly" {
		t.Errorf("Persisted text = %q, want %q", results[0].Text, "cats purr softly")
	}
	if results[0].Score < 0.9 {
		t.Errorf("Persisted embedding lost: score = %v", results[0].Score)
	}
	if results[0].Metadata["lang"] != "en" {
		t.Errorf("Persisted metadata = %v, want lang=en", results[0].Metadata)
	}
}

func TestDeserializeEmbedding_BadBlob(t *testing.T) {
	if got := deserializeEmbedding(nil); got != nil {
		t.Errorf("Expected nil for empty blob, got %v", got)
	}
	if got := deserializeEmbedding([]byte{1, 2, 3}); got != nil {
		t.Errorf("Expected nil for misaligned blob, got %v", got)
	}
}
