package rageddy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"rageddy/pkg/llm"
)

func newTestEngine(t *testing.T, archiveFiles map[string]string) *Engine {
	t.Helper()

	dir := t.TempDir()
	archive := filepath.Join(dir, "archive")
	if err := os.MkdirAll(archive, 0o755); err != nil {
		t.Fatal(err)
	}

	for name, content := range archiveFiles {
		path := filepath.Join(archive, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := Config{
		DBPath:         filepath.Join(dir, "test.db"),
		ArchivePath:    archive,
		EmbeddingModel: "mock",
	}

	e, err := NewWithModel(cfg, llm.NewMockLLM(64, "the answer from the model"))
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	t.Cleanup(func() { e.Close() })

	return e
}

func TestIndexArchive(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"gopher.md": "# Gopher Habits\n\nGophers dig extensive tunnel networks.",
		"notes.txt": "Plain notes about kettles and descaling.",
		"skip.bin":  "not a document",
	})

	report, err := e.IndexArchive(context.Background(), false)
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}

	if report.Indexed != 2 {
		t.Errorf("expected 2 indexed, got %d", report.Indexed)
	}
	if report.Embedded != 2 {
		t.Errorf("expected 2 embedded, got %d", report.Embedded)
	}
	if len(report.Errors) != 0 {
		t.Errorf("unexpected errors: %v", report.Errors)
	}

	status, err := e.Status()
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.TotalDocuments != 2 {
		t.Errorf("expected 2 documents, got %d", status.TotalDocuments)
	}
	if status.NeedsEmbedding != 0 {
		t.Errorf("expected nothing pending, got %d", status.NeedsEmbedding)
	}
}

func TestUpdateArchiveSkipsUnchanged(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"a.txt": "first document body.",
	})
	ctx := context.Background()

	if _, err := e.IndexArchive(ctx, false); err != nil {
		t.Fatalf("index failed: %v", err)
	}

	// Second run with nothing changed.
	report, err := e.UpdateArchive(ctx)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if report.Indexed != 0 || report.Unchanged != 1 {
		t.Errorf("expected 0 indexed / 1 unchanged, got %d / %d", report.Indexed, report.Unchanged)
	}
	if report.Embedded != 0 {
		t.Errorf("expected no re-embedding, got %d", report.Embedded)
	}

	// Add a file and change an existing one.
	archive := e.Config().ArchivePath
	if err := os.WriteFile(filepath.Join(archive, "b.txt"), []byte("a new document."), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(archive, "a.txt"), []byte("first document body, revised."), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err = e.UpdateArchive(ctx)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if report.Indexed != 2 {
		t.Errorf("expected 2 indexed after changes, got %d", report.Indexed)
	}
}

func TestIndexArchiveRebuild(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"a.txt": "document body here.",
	})
	ctx := context.Background()

	if _, err := e.IndexArchive(ctx, false); err != nil {
		t.Fatalf("index failed: %v", err)
	}

	report, err := e.IndexArchive(ctx, true)
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if report.Indexed != 1 {
		t.Errorf("expected full re-index on rebuild, got %d", report.Indexed)
	}
	if report.Embedded != 1 {
		t.Errorf("expected re-embedding on rebuild, got %d", report.Embedded)
	}
}

func TestAsk(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"gopher.md": "# Gopher Habits\n\nGophers dig extensive tunnel networks and eat roots.",
	})
	ctx := context.Background()

	if _, err := e.IndexArchive(ctx, false); err != nil {
		t.Fatalf("index failed: %v", err)
	}

	answer, err := e.Ask(ctx, "gophers tunnel networks")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if answer.Text != "the answer from the model" {
		t.Errorf("unexpected answer: %q", answer.Text)
	}
	if len(answer.Sources) == 0 {
		t.Error("expected sources")
	}
}

func TestAskEmptyIndex(t *testing.T) {
	e := newTestEngine(t, nil)

	answer, err := e.Ask(context.Background(), "anything")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if answer.Text == "" || len(answer.Sources) != 0 {
		t.Errorf("expected fallback answer without sources, got %+v", answer)
	}
}

func TestSearch(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"kettle.txt": "Descale the kettle monthly with vinegar.",
	})
	ctx := context.Background()

	if _, err := e.IndexArchive(ctx, false); err != nil {
		t.Fatalf("index failed: %v", err)
	}

	results, err := e.Search("kettle", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Path != "kettle.txt" {
		t.Errorf("unexpected result: %s", results[0].Path)
	}

	vresults, err := e.VectorSearch(ctx, "Descale the kettle monthly with vinegar.", 5)
	if err != nil {
		t.Fatalf("vector search failed: %v", err)
	}
	if len(vresults) == 0 {
		t.Fatal("expected vector results")
	}
}

func TestListArchive(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"indexed.txt":    "this one gets indexed.",
		"sub/fresh.md":   "# Fresh\n\nnot yet indexed.",
		"unsupported.xy": "never listed",
	})
	ctx := context.Background()

	files, err := e.ListArchive()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	for _, f := range files {
		if f.Indexed {
			t.Errorf("%s should not be indexed yet", f.Path)
		}
		if f.Size == 0 {
			t.Errorf("%s has zero size", f.Path)
		}
	}

	if _, err := e.IndexArchive(ctx, false); err != nil {
		t.Fatalf("index failed: %v", err)
	}

	files, err = e.ListArchive()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, f := range files {
		if !f.Indexed {
			t.Errorf("%s should be indexed", f.Path)
		}
	}
}

func TestRemoveFile(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"gone.txt": "short lived.",
	})
	ctx := context.Background()

	if _, err := e.IndexArchive(ctx, false); err != nil {
		t.Fatalf("index failed: %v", err)
	}

	full := filepath.Join(e.Config().ArchivePath, "gone.txt")
	if err := e.RemoveFile(full); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	status, err := e.Status()
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.TotalDocuments != 0 {
		t.Errorf("expected 0 documents after removal, got %d", status.TotalDocuments)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	if cfg.ChunkSize != 512 {
		t.Errorf("expected default chunk size 512, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap != 50 {
		t.Errorf("expected default chunk overlap 50, got %d", cfg.ChunkOverlap)
	}
	if cfg.TopK != 5 {
		t.Errorf("expected default top-k 5, got %d", cfg.TopK)
	}
	if cfg.MinScore != 0.3 {
		t.Errorf("expected default min score 0.3, got %v", cfg.MinScore)
	}
}
