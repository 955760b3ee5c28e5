package store

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"rageddy/pkg/vectordb"
)

// SearchVector runs a KNN query over the sqlite-vec index and returns
// document-level results. Multiple chunks of the same document are
// collapsed to the best-scoring chunk. Scores are cosine similarity
// in [0, 1].
func (s *Store) SearchVector(queryEmbedding []float32, collection string, limit int) ([]SearchResult, error) {
	if len(queryEmbedding) == 0 {
		return nil, fmt.Errorf("empty query embedding")
	}

	var hasVecTable bool
	err := s.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'vectors_vec')",
	).Scan(&hasVecTable)
	if err != nil {
		return nil, fmt.Errorf("failed to check vector table: %w", err)
	}
	if !hasVecTable {
		return s.searchVectorBrute(queryEmbedding, collection, limit)
	}

	blob, err := sqlite_vec.SerializeFloat32(queryEmbedding)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize query embedding: %w", err)
	}

	// Over-fetch chunks so document-level dedup still fills the limit.
	k := limit * 3
	if k < limit {
		k = limit
	}

	rows, err := s.db.Query(`
		SELECT hash_seq, distance
		FROM vectors_vec
		WHERE embedding MATCH ? AND k = ?
		ORDER BY distance
	`, blob, k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	type hit struct {
		hash     string
		seq      int
		distance float64
	}

	best := make(map[string]hit)
	var order []string
	for rows.Next() {
		var hashSeq string
		var distance float64
		if err := rows.Scan(&hashSeq, &distance); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan vector hit: %w", err)
		}

		hash, seq := splitHashSeq(hashSeq)
		if hash == "" {
			continue
		}

		if h, ok := best[hash]; !ok {
			best[hash] = hit{hash: hash, seq: seq, distance: distance}
			order = append(order, hash)
		} else if distance < h.distance {
			best[hash] = hit{hash: hash, seq: seq, distance: distance}
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	var results []SearchResult
	for _, hash := range order {
		if len(results) >= limit {
			break
		}
		h := best[hash]

		r, ok, err := s.resultForChunk(h.hash, h.seq, collection)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		r.Score = 1.0 - h.distance
		if r.Score < 0 {
			r.Score = 0
		}
		r.Source = "vector"
		results = append(results, r)
	}

	return results, nil
}

// searchVectorBrute scans content_vectors and ranks chunks by cosine
// similarity in memory. Used when the vec index has been dropped, e.g.
// right after a Reset with embeddings restored from another database.
func (s *Store) searchVectorBrute(queryEmbedding []float32, collection string, limit int) ([]SearchResult, error) {
	rows, err := s.db.Query("SELECT hash, seq, embedding FROM content_vectors")
	if err != nil {
		return nil, fmt.Errorf("failed to scan embeddings: %w", err)
	}

	type chunkRef struct {
		hash string
		seq  int
	}

	var refs []chunkRef
	var vectors [][]float32
	for rows.Next() {
		var ref chunkRef
		var blob []byte
		if err := rows.Scan(&ref.hash, &ref.seq, &blob); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		vec := blobToFloat32(blob)
		if len(vec) != len(queryEmbedding) {
			continue
		}
		refs = append(refs, ref)
		vectors = append(vectors, vec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(refs) == 0 {
		return nil, nil
	}

	top := vectordb.TopK(queryEmbedding, vectors, limit*3)

	best := make(map[string]vectordb.Neighbor)
	var order []string
	for _, n := range top {
		hash := refs[n.Index].hash
		if b, ok := best[hash]; !ok {
			best[hash] = n
			order = append(order, hash)
		} else if n.Similarity > b.Similarity {
			best[hash] = n
		}
	}

	var results []SearchResult
	for _, hash := range order {
		if len(results) >= limit {
			break
		}
		n := best[hash]

		r, ok, err := s.resultForChunk(hash, refs[n.Index].seq, collection)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		r.Score = n.Similarity
		r.Source = "vector"
		results = append(results, r)
	}

	return results, nil
}

// resultForChunk builds a SearchResult for a matched chunk, recovering
// the chunk text from the stored byte range.
func (s *Store) resultForChunk(hash string, seq int, collection string) (SearchResult, bool, error) {
	var r SearchResult
	var content, modifiedAt string
	var pos, end int

	query := `
		SELECT d.id, d.collection, d.path, d.title, c.doc, v.pos, v.end_pos, d.modified_at
		FROM content_vectors v
		JOIN documents d ON d.hash = v.hash AND d.active = 1
		JOIN content c ON c.hash = v.hash
		WHERE v.hash = ? AND v.seq = ?
	`

	args := []interface{}{hash, seq}
	if collection != "" {
		query += " AND d.collection = ?"
		args = append(args, collection)
	}
	query += " LIMIT 1"

	err := s.db.QueryRow(query, args...).Scan(
		&r.ID, &r.Collection, &r.Path, &r.Title, &content, &pos, &end, &modifiedAt,
	)
	if err != nil {
		// The matched chunk may belong to a deleted document or another
		// collection; skip it rather than fail the whole search.
		return r, false, nil
	}
	r.Timestamp, _ = time.Parse(time.RFC3339, modifiedAt)

	if pos >= 0 && end > pos && end <= len(content) {
		r.Content = content[pos:end]
	} else {
		r.Content = content
	}
	r.Snippet = extractSnippet(r.Content, "", 200)

	return r, true, nil
}

func splitHashSeq(hashSeq string) (string, int) {
	idx := strings.LastIndexByte(hashSeq, '_')
	if idx <= 0 {
		return "", 0
	}
	seq, err := strconv.Atoi(hashSeq[idx+1:])
	if err != nil {
		return "", 0
	}
	return hashSeq[:idx], seq
}

func blobToFloat32(blob []byte) []float32 {
	if len(blob)%4 != 0 {
		return nil
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vec[i] = math.Float32frombits(bits)
	}
	return vec
}
