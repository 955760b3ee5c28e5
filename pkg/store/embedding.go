package store

import (
	"database/sql"
	"fmt"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// DocumentToEmbed pairs a content hash with its full text, ready for
// chunking and embedding.
type DocumentToEmbed struct {
	Hash    string
	Title   string
	Content string
}

// GetDocumentsNeedingEmbedding returns active documents whose content
// has no stored vectors yet.
func (s *Store) GetDocumentsNeedingEmbedding(limit int) ([]DocumentToEmbed, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT d.hash, d.title, c.doc
		FROM documents d
		JOIN content c ON c.hash = d.hash
		LEFT JOIN content_vectors v ON d.hash = v.hash AND v.seq = 0
		WHERE d.active = 1 AND v.hash IS NULL
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents needing embedding: %w", err)
	}
	defer rows.Close()

	var docs []DocumentToEmbed
	for rows.Next() {
		var d DocumentToEmbed
		if err := rows.Scan(&d.Hash, &d.Title, &d.Content); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}

	return docs, rows.Err()
}

// StoreChunkEmbeddings persists all chunk embeddings of a document, in
// both the metadata table and the sqlite-vec index. The vector table is
// created lazily on first use with the model's dimension. chunks and
// embeddings must be parallel slices; any previous vectors for the hash
// are replaced.
func (s *Store) StoreChunkEmbeddings(hash string, chunks []Chunk, model string, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}
	for i := range embeddings {
		if len(embeddings[i]) == 0 {
			return fmt.Errorf("empty embedding for hash %s", hash)
		}
	}

	// Table creation is DDL; do it before the write transaction.
	if len(embeddings) > 0 {
		if err := s.ensureVectorTable(len(embeddings[0])); err != nil {
			return err
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Replace any previous vectors for the hash in the same
	// transaction, so a failure leaves the document fully unembedded
	// and it stays visible to GetDocumentsNeedingEmbedding.
	oldSeqs, err := querySeqs(tx, hash)
	if err != nil {
		return err
	}
	for _, seq := range oldSeqs {
		_, _ = tx.Exec("DELETE FROM vectors_vec WHERE hash_seq = ?", fmt.Sprintf("%s_%d", hash, seq))
	}
	if _, err := tx.Exec("DELETE FROM content_vectors WHERE hash = ?", hash); err != nil {
		return fmt.Errorf("failed to delete old embeddings: %w", err)
	}

	for i, chunk := range chunks {
		blob, err := sqlite_vec.SerializeFloat32(embeddings[i])
		if err != nil {
			return fmt.Errorf("failed to serialize embedding: %w", err)
		}

		_, err = tx.Exec(`
			INSERT OR REPLACE INTO content_vectors (hash, seq, pos, end_pos, model, embedding, embedded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, hash, i, chunk.Pos, chunk.End, model, blob, time.Now().UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("failed to store embedding metadata: %w", err)
		}

		hashSeq := fmt.Sprintf("%s_%d", hash, i)
		_, err = tx.Exec("INSERT INTO vectors_vec (hash_seq, embedding) VALUES (?, ?)", hashSeq, blob)
		if err != nil {
			return fmt.Errorf("failed to store vector: %w", err)
		}
	}

	return tx.Commit()
}

func querySeqs(tx *sql.Tx, hash string) ([]int, error) {
	rows, err := tx.Query("SELECT seq FROM content_vectors WHERE hash = ?", hash)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing embeddings: %w", err)
	}
	defer rows.Close()

	var seqs []int
	for rows.Next() {
		var seq int
		if err := rows.Scan(&seq); err != nil {
			return nil, fmt.Errorf("failed to scan seq: %w", err)
		}
		seqs = append(seqs, seq)
	}
	return seqs, rows.Err()
}

// DeleteEmbeddings removes all stored vectors for a content hash.
func (s *Store) DeleteEmbeddings(hash string) error {
	rows, err := s.db.Query("SELECT seq FROM content_vectors WHERE hash = ?", hash)
	if err != nil {
		return fmt.Errorf("failed to query existing embeddings: %w", err)
	}

	var seqs []int
	for rows.Next() {
		var seq int
		if err := rows.Scan(&seq); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan seq: %w", err)
		}
		seqs = append(seqs, seq)
	}
	rows.Close()

	if len(seqs) == 0 {
		return nil
	}

	for _, seq := range seqs {
		hashSeq := fmt.Sprintf("%s_%d", hash, seq)
		// The vector table may not exist yet when embeddings were
		// stored by an older run that was interrupted.
		_, _ = s.db.Exec("DELETE FROM vectors_vec WHERE hash_seq = ?", hashSeq)
	}

	_, err = s.db.Exec("DELETE FROM content_vectors WHERE hash = ?", hash)
	if err != nil {
		return fmt.Errorf("failed to delete embeddings: %w", err)
	}

	return nil
}

// PruneEmbeddings drops vectors whose content hash no longer belongs to
// any active document, which happens when a file's content changes or
// the document is removed. Returns the number of hashes pruned.
func (s *Store) PruneEmbeddings() (int, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT v.hash
		FROM content_vectors v
		LEFT JOIN documents d ON d.hash = v.hash AND d.active = 1
		WHERE d.hash IS NULL
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to find stale embeddings: %w", err)
	}

	var stale []string
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan stale hash: %w", err)
		}
		stale = append(stale, hash)
	}
	rows.Close()

	for _, hash := range stale {
		if err := s.DeleteEmbeddings(hash); err != nil {
			return 0, err
		}
	}

	return len(stale), nil
}

// CountEmbeddedDocuments returns the number of distinct content hashes
// with at least one stored vector.
func (s *Store) CountEmbeddedDocuments() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(DISTINCT hash) FROM content_vectors").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count embedded documents: %w", err)
	}
	return n, nil
}
