// Package store implements the on-disk index: documents, chunk embeddings
// and full-text search, all in a single SQLite database.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// schema is applied on every open; all statements are idempotent.
// The FTS5 table needs go-sqlite3 built with the sqlite_fts5 tag.
const schema = `
-- Content-addressable storage: document text keyed by its SHA256 hash.
CREATE TABLE IF NOT EXISTS content (
    hash TEXT PRIMARY KEY,
    doc TEXT NOT NULL,
    created_at TEXT NOT NULL
);

-- Document metadata. One row per file in a collection.
CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    collection TEXT NOT NULL,
    path TEXT NOT NULL,
    title TEXT NOT NULL,
    format TEXT NOT NULL DEFAULT '',
    hash TEXT NOT NULL,
    created_at TEXT NOT NULL,
    modified_at TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 1,
    FOREIGN KEY (hash) REFERENCES content(hash) ON DELETE CASCADE,
    UNIQUE(collection, path)
);

CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection, active);
CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(hash);
CREATE INDEX IF NOT EXISTS idx_documents_path ON documents(path, active);

-- Chunk embedding metadata. seq is the chunk index within a document,
-- pos/end_pos delimit the chunk text inside the document body.
CREATE TABLE IF NOT EXISTS content_vectors (
    hash TEXT NOT NULL,
    seq INTEGER NOT NULL DEFAULT 0,
    pos INTEGER NOT NULL DEFAULT 0,
    end_pos INTEGER NOT NULL DEFAULT 0,
    model TEXT NOT NULL,
    embedding BLOB,
    embedded_at TEXT NOT NULL,
    PRIMARY KEY (hash, seq)
);

-- FTS5 full-text index over document bodies.
CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
    filepath, title, body,
    tokenize='porter unicode61'
);

-- Cache for query embeddings and other per-query LLM results.
CREATE TABLE IF NOT EXISTS llm_cache (
    hash TEXT PRIMARY KEY,
    result TEXT NOT NULL,
    created_at TEXT NOT NULL
);

-- Watched folders. The archive folder is the default collection.
CREATE TABLE IF NOT EXISTS collections (
    name TEXT PRIMARY KEY,
    path TEXT NOT NULL,
    mask TEXT NOT NULL DEFAULT '**/*',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_collections_path ON collections(path);

-- Keep the FTS index in sync with documents.
CREATE TRIGGER IF NOT EXISTS documents_ai AFTER INSERT ON documents
BEGIN
    INSERT INTO documents_fts (rowid, filepath, title, body)
    SELECT NEW.id, NEW.collection || '/' || NEW.path, NEW.title, content.doc
    FROM content WHERE content.hash = NEW.hash;
END;

CREATE TRIGGER IF NOT EXISTS documents_au AFTER UPDATE ON documents
BEGIN
    DELETE FROM documents_fts WHERE rowid = OLD.id;
    INSERT INTO documents_fts (rowid, filepath, title, body)
    SELECT NEW.id, NEW.collection || '/' || NEW.path, NEW.title, content.doc
    FROM content WHERE content.hash = NEW.hash AND NEW.active = 1;
END;

CREATE TRIGGER IF NOT EXISTS documents_ad AFTER DELETE ON documents
BEGIN
    DELETE FROM documents_fts WHERE rowid = OLD.id;
END;
`

// Store wraps the SQLite database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// New opens (or creates) the database at dbPath and applies the schema.
func New(dbPath string) (*Store, error) {
	// Register the sqlite-vec extension before any connection opens.
	sqlite_vec.Auto()

	if dbPath != ":memory:" && !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB returns the underlying connection for advanced use.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Reset drops all indexed data. Used by full rebuilds.
func (s *Store) Reset() error {
	stmts := []string{
		"DELETE FROM documents",
		"DELETE FROM content_vectors",
		"DELETE FROM content",
		"DELETE FROM llm_cache",
		"DROP TABLE IF EXISTS vectors_vec",
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("reset failed on %q: %w", stmt, err)
		}
	}
	return nil
}

// ensureVectorTable creates the vectors_vec virtual table for the given
// dimension if it does not exist yet.
func (s *Store) ensureVectorTable(dimensions int) error {
	var tableName string
	err := s.db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='vectors_vec'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		createSQL := fmt.Sprintf(
			"CREATE VIRTUAL TABLE vectors_vec USING vec0(hash_seq TEXT PRIMARY KEY, embedding float[%d] distance_metric=cosine)",
			dimensions,
		)
		if _, err := s.db.Exec(createSQL); err != nil {
			return fmt.Errorf("failed to create vectors_vec table: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to check vectors_vec table: %w", err)
	}

	return nil
}
