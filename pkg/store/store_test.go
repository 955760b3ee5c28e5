package store

import (
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func TestIndexAndGetDocument(t *testing.T) {
	s := newTestStore(t)

	doc := Document{
		Collection: "archive",
		Path:       "notes/go.md",
		Title:      "Go Notes",
		Format:     "md",
		Content:    "Go is a statically typed language. It compiles fast.",
	}

	if err := s.IndexDocument(doc); err != nil {
		t.Fatalf("failed to index document: %v", err)
	}

	got, err := s.GetDocument("notes/go.md")
	if err != nil {
		t.Fatalf("failed to get document: %v", err)
	}

	if got.Title != "Go Notes" {
		t.Errorf("expected title 'Go Notes', got %q", got.Title)
	}
	if got.Content != doc.Content {
		t.Errorf("content mismatch: %q", got.Content)
	}
	if got.Hash != ComputeHash(doc.Content) {
		t.Errorf("hash mismatch: %s", got.Hash)
	}
	if got.Format != "md" {
		t.Errorf("expected format 'md', got %q", got.Format)
	}
}

func TestIndexDocumentUpsert(t *testing.T) {
	s := newTestStore(t)

	doc := Document{
		Collection: "archive",
		Path:       "a.txt",
		Title:      "First",
		Format:     "txt",
		Content:    "first version",
	}
	if err := s.IndexDocument(doc); err != nil {
		t.Fatalf("failed to index: %v", err)
	}

	doc.Title = "Second"
	doc.Content = "second version"
	if err := s.IndexDocument(doc); err != nil {
		t.Fatalf("failed to re-index: %v", err)
	}

	got, err := s.GetDocument("a.txt")
	if err != nil {
		t.Fatalf("failed to get document: %v", err)
	}
	if got.Title != "Second" {
		t.Errorf("expected updated title, got %q", got.Title)
	}
	if got.Content != "second version" {
		t.Errorf("expected updated content, got %q", got.Content)
	}

	docs, err := s.ListDocuments("archive", 10, 0)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("expected 1 document after upsert, got %d", len(docs))
	}
}

func TestGetDocumentHash(t *testing.T) {
	s := newTestStore(t)

	hash, err := s.GetDocumentHash("archive", "missing.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash != "" {
		t.Errorf("expected empty hash for missing doc, got %q", hash)
	}

	doc := Document{Collection: "archive", Path: "x.txt", Title: "X", Format: "txt", Content: "hello"}
	if err := s.IndexDocument(doc); err != nil {
		t.Fatalf("failed to index: %v", err)
	}

	hash, err = s.GetDocumentHash("archive", "x.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash != ComputeHash("hello") {
		t.Errorf("hash mismatch: %s", hash)
	}
}

func TestDeleteDocument(t *testing.T) {
	s := newTestStore(t)

	doc := Document{Collection: "archive", Path: "del.txt", Title: "Del", Format: "txt", Content: "delete me"}
	if err := s.IndexDocument(doc); err != nil {
		t.Fatalf("failed to index: %v", err)
	}

	if err := s.DeleteDocument("del.txt"); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}

	if _, err := s.GetDocument("del.txt"); err == nil {
		t.Error("expected error getting deleted document")
	}

	if err := s.DeleteDocument("del.txt"); err == nil {
		t.Error("expected error deleting twice")
	}
}

func TestSearchFTS(t *testing.T) {
	s := newTestStore(t)

	docs := []Document{
		{Collection: "archive", Path: "go.md", Title: "Go Guide", Format: "md", Content: "Goroutines are lightweight threads managed by the Go runtime."},
		{Collection: "archive", Path: "py.md", Title: "Python Guide", Format: "md", Content: "Python uses an interpreter and dynamic typing."},
	}
	for _, d := range docs {
		if err := s.IndexDocument(d); err != nil {
			t.Fatalf("failed to index %s: %v", d.Path, err)
		}
	}

	results, err := s.SearchFTS("goroutines", "archive", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Path != "go.md" {
		t.Errorf("expected go.md, got %s", results[0].Path)
	}
	if results[0].Score <= 0 || results[0].Score > 1 {
		t.Errorf("score out of range: %f", results[0].Score)
	}
	if results[0].Source != "fts" {
		t.Errorf("expected source fts, got %s", results[0].Source)
	}
}

func TestSearchFTSDeletedDocument(t *testing.T) {
	s := newTestStore(t)

	doc := Document{Collection: "archive", Path: "gone.txt", Title: "Gone", Format: "txt", Content: "ephemeral content here"}
	if err := s.IndexDocument(doc); err != nil {
		t.Fatalf("failed to index: %v", err)
	}
	if err := s.DeleteDocument("gone.txt"); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}

	results, err := s.SearchFTS("ephemeral", "", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results for deleted doc, got %d", len(results))
	}
}

func TestSearchVector(t *testing.T) {
	s := newTestStore(t)

	docs := []Document{
		{Collection: "archive", Path: "a.txt", Title: "A", Format: "txt", Content: "alpha document body."},
		{Collection: "archive", Path: "b.txt", Title: "B", Format: "txt", Content: "beta document body."},
	}
	embeddings := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
	}

	for i, d := range docs {
		if err := s.IndexDocument(d); err != nil {
			t.Fatalf("failed to index: %v", err)
		}
		hash := ComputeHash(d.Content)
		chunks := []Chunk{{Text: d.Content, Pos: 0, End: len(d.Content)}}
		if err := s.StoreChunkEmbeddings(hash, chunks, "test-model", [][]float32{embeddings[i]}); err != nil {
			t.Fatalf("failed to store embedding: %v", err)
		}
	}

	results, err := s.SearchVector([]float32{0.9, 0.1, 0, 0}, "archive", 5)
	if err != nil {
		t.Fatalf("vector search failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].Path != "a.txt" {
		t.Errorf("expected a.txt first, got %s", results[0].Path)
	}
	if results[0].Source != "vector" {
		t.Errorf("expected source vector, got %s", results[0].Source)
	}
	if results[0].Content != "alpha document body." {
		t.Errorf("expected chunk text recovered, got %q", results[0].Content)
	}
}

func TestEmbeddingLifecycle(t *testing.T) {
	s := newTestStore(t)

	doc := Document{Collection: "archive", Path: "e.txt", Title: "E", Format: "txt", Content: "needs an embedding."}
	if err := s.IndexDocument(doc); err != nil {
		t.Fatalf("failed to index: %v", err)
	}

	pending, err := s.GetDocumentsNeedingEmbedding(10)
	if err != nil {
		t.Fatalf("failed to query pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending document, got %d", len(pending))
	}

	hash := pending[0].Hash
	chunks := []Chunk{{Text: doc.Content, Pos: 0, End: len(doc.Content)}}
	if err := s.StoreChunkEmbeddings(hash, chunks, "test-model", [][]float32{{0.1, 0.2, 0.3}}); err != nil {
		t.Fatalf("failed to store embeddings: %v", err)
	}

	pending, err = s.GetDocumentsNeedingEmbedding(10)
	if err != nil {
		t.Fatalf("failed to query pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending documents, got %d", len(pending))
	}

	n, err := s.CountEmbeddedDocuments()
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 embedded document, got %d", n)
	}

	if err := s.DeleteEmbeddings(hash); err != nil {
		t.Fatalf("failed to delete embeddings: %v", err)
	}

	pending, err = s.GetDocumentsNeedingEmbedding(10)
	if err != nil {
		t.Fatalf("failed to query pending: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("expected document pending again, got %d", len(pending))
	}
}

func TestStoreChunkEmbeddingsAllOrNothing(t *testing.T) {
	s := newTestStore(t)

	doc := Document{Collection: "archive", Path: "t.txt", Title: "T", Format: "txt", Content: "two chunk doc."}
	if err := s.IndexDocument(doc); err != nil {
		t.Fatalf("failed to index: %v", err)
	}

	hash := ComputeHash(doc.Content)
	chunks := []Chunk{
		{Text: "two", Pos: 0, End: 3},
		{Text: "chunk", Pos: 4, End: 9},
	}

	// A bad chunk must not leave the earlier chunks behind; a
	// half-embedded document would never be retried.
	err := s.StoreChunkEmbeddings(hash, chunks, "test-model", [][]float32{{0.1, 0.2}, nil})
	if err == nil {
		t.Fatal("expected error for missing embedding")
	}

	n, err := s.CountEmbeddedDocuments()
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no embedded documents after failed store, got %d", n)
	}

	pending, err := s.GetDocumentsNeedingEmbedding(10)
	if err != nil {
		t.Fatalf("failed to query pending: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("expected document still pending, got %d", len(pending))
	}
}

func TestPruneEmbeddings(t *testing.T) {
	s := newTestStore(t)

	doc := Document{Collection: "archive", Path: "p.txt", Title: "P", Format: "txt", Content: "first version."}
	if err := s.IndexDocument(doc); err != nil {
		t.Fatalf("failed to index: %v", err)
	}

	oldHash := ComputeHash(doc.Content)
	chunks := []Chunk{{Text: doc.Content, Pos: 0, End: len(doc.Content)}}
	if err := s.StoreChunkEmbeddings(oldHash, chunks, "test-model", [][]float32{{0.1, 0.2, 0.3}}); err != nil {
		t.Fatalf("failed to store embeddings: %v", err)
	}

	// Re-index with changed content; the old hash's vectors go stale.
	doc.Content = "second version."
	if err := s.IndexDocument(doc); err != nil {
		t.Fatalf("failed to re-index: %v", err)
	}

	pruned, err := s.PruneEmbeddings()
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("expected 1 pruned hash, got %d", pruned)
	}

	n, err := s.CountEmbeddedDocuments()
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no embedded documents after prune, got %d", n)
	}
}

func TestReset(t *testing.T) {
	s := newTestStore(t)

	doc := Document{Collection: "archive", Path: "r.txt", Title: "R", Format: "txt", Content: "reset target."}
	if err := s.IndexDocument(doc); err != nil {
		t.Fatalf("failed to index: %v", err)
	}

	if err := s.Reset(); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	status, err := s.GetStatus()
	if err != nil {
		t.Fatalf("failed to get status: %v", err)
	}
	if status.TotalDocuments != 0 {
		t.Errorf("expected 0 documents after reset, got %d", status.TotalDocuments)
	}
}

func TestGetStatus(t *testing.T) {
	s := newTestStore(t)

	docs := []Document{
		{Collection: "archive", Path: "1.txt", Title: "One", Format: "txt", Content: "one"},
		{Collection: "papers", Path: "2.txt", Title: "Two", Format: "txt", Content: "two"},
	}
	for _, d := range docs {
		if err := s.IndexDocument(d); err != nil {
			t.Fatalf("failed to index: %v", err)
		}
	}

	status, err := s.GetStatus()
	if err != nil {
		t.Fatalf("failed to get status: %v", err)
	}
	if status.TotalDocuments != 2 {
		t.Errorf("expected 2 documents, got %d", status.TotalDocuments)
	}
	if status.NeedsEmbedding != 2 {
		t.Errorf("expected 2 needing embedding, got %d", status.NeedsEmbedding)
	}
	if len(status.Collections) != 2 {
		t.Errorf("expected 2 collections, got %v", status.Collections)
	}
}

func TestCollections(t *testing.T) {
	s := newTestStore(t)

	if err := s.AddCollection("archive", "/data/archive", "**/*"); err != nil {
		t.Fatalf("failed to add collection: %v", err)
	}

	c, err := s.GetCollection("archive")
	if err != nil {
		t.Fatalf("failed to get collection: %v", err)
	}
	if c.Path != "/data/archive" {
		t.Errorf("expected path /data/archive, got %s", c.Path)
	}

	if err := s.AddCollection("archive", "/other", "**/*.md"); err != nil {
		t.Fatalf("failed to update collection: %v", err)
	}
	c, err = s.GetCollection("archive")
	if err != nil {
		t.Fatalf("failed to get collection: %v", err)
	}
	if c.Path != "/other" || c.Mask != "**/*.md" {
		t.Errorf("collection not updated: %+v", c)
	}

	list, err := s.ListCollections()
	if err != nil {
		t.Fatalf("failed to list collections: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 collection, got %d", len(list))
	}

	if err := s.RemoveCollection("archive"); err != nil {
		t.Fatalf("failed to remove collection: %v", err)
	}
	if _, err := s.GetCollection("archive"); err == nil {
		t.Error("expected error for removed collection")
	}
}

func TestLLMCache(t *testing.T) {
	s := newTestStore(t)

	key := CacheKey("test-model", "some query")

	_, ok, err := s.GetCachedResult(key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected cache miss")
	}

	if err := s.SetCachedResult(key, []byte(`[0.1,0.2]`)); err != nil {
		t.Fatalf("failed to set cache: %v", err)
	}

	result, ok, err := s.GetCachedResult(key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(result) != `[0.1,0.2]` {
		t.Errorf("unexpected cached value: %s", result)
	}
}

func TestChunkText(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("This is a sentence about chunking behavior in the index. ")
	}
	content := sb.String()

	chunks := ChunkText(content, 128, 20)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if c.Text == "" {
			t.Errorf("chunk %d is empty", i)
		}
		if c.Pos < 0 || c.End > len(content) || c.Pos >= c.End {
			t.Errorf("chunk %d has invalid range [%d, %d)", i, c.Pos, c.End)
		}
		if content[c.Pos:c.End] != c.Text {
			t.Errorf("chunk %d text does not match its range", i)
		}
	}

	// Adjacent chunks overlap.
	if chunks[1].Pos >= chunks[0].End {
		t.Error("expected chunk overlap")
	}
}

func TestChunkTextShort(t *testing.T) {
	chunks := ChunkText("One short sentence.", 512, 50)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "One short sentence." {
		t.Errorf("unexpected chunk text: %q", chunks[0].Text)
	}
}

func TestChunkTextEmpty(t *testing.T) {
	if chunks := ChunkText("", 512, 50); chunks != nil {
		t.Errorf("expected nil for empty content, got %v", chunks)
	}
	if chunks := ChunkText("   \n\t ", 512, 50); chunks != nil {
		t.Errorf("expected nil for whitespace content, got %v", chunks)
	}
}

func TestReciprocalRankFusion(t *testing.T) {
	fts := []SearchResult{
		{ID: "1", Path: "a.txt", Score: 0.9},
		{ID: "2", Path: "b.txt", Score: 0.5},
	}
	vec := []SearchResult{
		{ID: "2", Path: "b.txt", Score: 0.8},
		{ID: "3", Path: "c.txt", Score: 0.6},
	}

	fused := ReciprocalRankFusion(fts, vec)
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused results, got %d", len(fused))
	}

	// The document present in both lists ranks first.
	if fused[0].ID != "2" {
		t.Errorf("expected doc 2 first, got %s", fused[0].ID)
	}

	for i := 1; i < len(fused); i++ {
		if fused[i].Score > fused[i-1].Score {
			t.Error("fused results not sorted by score")
		}
	}
	for _, r := range fused {
		if r.Source != "hybrid" {
			t.Errorf("expected source hybrid, got %s", r.Source)
		}
	}
}

func TestExtractSnippetRuneSafe(t *testing.T) {
	// A long run of multibyte characters with no spaces forces the
	// cut to land inside the text rather than on a word boundary.
	unbroken := strings.Repeat("é", 300)

	snippet := extractSnippet(unbroken, "missing", 200)
	if !utf8.ValidString(snippet) {
		t.Error("snippet split a multibyte character")
	}

	withMatch := strings.Repeat("日本語", 100) + " needle " + strings.Repeat("日本語", 100)
	snippet = extractSnippet(withMatch, "needle", 50)
	if !utf8.ValidString(snippet) {
		t.Error("matched snippet split a multibyte character")
	}
	if !strings.Contains(snippet, "needle") {
		t.Errorf("snippet lost the matched term: %q", snippet)
	}
}

func TestBuildFTS5Query(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"hello", `"hello"*`},
		{"hello world", `"hello"* OR "world"*`},
		{`quo"ted`, `"quoted"*`},
		{"", ""},
		{"   ", ""},
	}

	for _, c := range cases {
		if got := buildFTS5Query(c.in); got != c.want {
			t.Errorf("buildFTS5Query(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
