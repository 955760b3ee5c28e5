package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"
)

// CacheKey derives a stable cache key from a model name and input text.
func CacheKey(model, input string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + input))
	return hex.EncodeToString(sum[:])
}

// GetCachedResult returns a cached LLM result, or ok=false on miss.
func (s *Store) GetCachedResult(key string) ([]byte, bool, error) {
	var result []byte
	err := s.db.QueryRow("SELECT result FROM llm_cache WHERE hash = ?", key).Scan(&result)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read llm cache: %w", err)
	}
	return result, true, nil
}

// SetCachedResult stores an LLM result under key, replacing any
// previous value.
func (s *Store) SetCachedResult(key string, result []byte) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO llm_cache (hash, result, created_at) VALUES (?, ?, ?)",
		key, result, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to write llm cache: %w", err)
	}
	return nil
}
