package store

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// SearchFTS runs a BM25 full-text query over document titles and
// content. Scores are normalized to (0, 1].
func (s *Store) SearchFTS(query, collection string, limit int) ([]SearchResult, error) {
	ftsQuery := buildFTS5Query(query)
	if ftsQuery == "" {
		return nil, nil
	}

	sqlQuery := `
		SELECT d.id, d.collection, d.path, d.title, c.doc,
			bm25(documents_fts, 1.0, 10.0, 1.0) AS score,
			d.modified_at
		FROM documents_fts f
		JOIN documents d ON d.id = f.rowid
		JOIN content c ON c.hash = d.hash
		WHERE documents_fts MATCH ? AND d.active = 1
	`

	args := []interface{}{ftsQuery}
	if collection != "" {
		sqlQuery += " AND d.collection = ?"
		args = append(args, collection)
	}

	sqlQuery += " ORDER BY score LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("fts search failed: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var content, modifiedAt string
		var score float64

		err := rows.Scan(&r.ID, &r.Collection, &r.Path, &r.Title, &content, &score, &modifiedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		r.Timestamp, _ = time.Parse(time.RFC3339, modifiedAt)

		r.Score = normalizeBM25Score(score)
		r.Content = content
		r.Snippet = extractSnippet(content, query, 200)
		r.Source = "fts"

		results = append(results, r)
	}

	return results, rows.Err()
}

// buildFTS5Query turns free text into an FTS5 prefix query: each term
// becomes a quoted prefix match, any term suffices. BM25 ranking
// rewards documents matching more terms, and natural-language
// questions stay usable even when filler words never appear in the
// corpus.
func buildFTS5Query(query string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return ""
	}

	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.Map(func(r rune) rune {
			if r == '"' || r == '\'' {
				return -1
			}
			return r
		}, term)
		if term == "" {
			continue
		}
		quoted = append(quoted, fmt.Sprintf(`"%s"*`, term))
	}

	return strings.Join(quoted, " OR ")
}

// normalizeBM25Score maps SQLite's bm25 output (lower is better,
// usually negative) into (0, 1] with higher meaning more relevant.
func normalizeBM25Score(score float64) float64 {
	return 1.0 / (1.0 + math.Abs(score))
}

// extractSnippet returns a window of content around the first matched
// query term, trimmed to maxLen characters on word boundaries.
func extractSnippet(content, query string, maxLen int) string {
	content = strings.Join(strings.Fields(content), " ")
	if len(content) <= maxLen {
		return content
	}

	lower := strings.ToLower(content)
	pos := -1
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if idx := strings.Index(lower, term); idx >= 0 {
			pos = idx
			break
		}
	}

	if pos < 0 {
		return content[:runeStart(content, maxLen)] + "..."
	}

	start := pos - maxLen/4
	if start < 0 {
		start = 0
	}
	end := start + maxLen
	if end > len(content) {
		end = len(content)
		start = end - maxLen
		if start < 0 {
			start = 0
		}
	}
	start = runeStart(content, start)
	end = runeStart(content, end)

	snippet := content[start:end]
	if start > 0 {
		if idx := strings.IndexByte(snippet, ' '); idx >= 0 {
			snippet = snippet[idx+1:]
		}
		snippet = "..." + snippet
	}
	if end < len(content) {
		if idx := strings.LastIndexByte(snippet, ' '); idx >= 0 {
			snippet = snippet[:idx]
		}
		snippet = snippet + "..."
	}

	return snippet
}

// runeStart backs a byte offset up to the nearest rune boundary, so a
// cut never splits a multibyte character.
func runeStart(s string, idx int) int {
	if idx >= len(s) {
		return len(s)
	}
	for idx > 0 && !utf8.RuneStart(s[idx]) {
		idx--
	}
	return idx
}

// ReciprocalRankFusion merges ranked result lists using RRF with k=60.
// The top results of each list get a small bonus so exact matches keep
// their edge after fusion.
func ReciprocalRankFusion(lists ...[]SearchResult) []SearchResult {
	const k = 60.0

	type fused struct {
		result SearchResult
		score  float64
	}

	merged := make(map[string]*fused)
	for _, list := range lists {
		for rank, r := range list {
			score := 1.0 / (k + float64(rank+1))
			switch rank {
			case 0:
				score += 0.05
			case 1:
				score += 0.02
			}

			if f, ok := merged[r.ID]; ok {
				f.score += score
				if r.Score > f.result.Score {
					f.result = r
				}
			} else {
				merged[r.ID] = &fused{result: r, score: score}
			}
		}
	}

	results := make([]SearchResult, 0, len(merged))
	for _, f := range merged {
		f.result.Score = f.score
		f.result.Source = "hybrid"
		results = append(results, f.result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}
