// Package rageddy ties the pieces together: loading documents from an
// archive folder, indexing them, generating embeddings and answering
// questions over the result.
package rageddy

import "path/filepath"

// DefaultCollection is the collection name used for the archive folder.
const DefaultCollection = "archive"

// Config configures an Engine.
type Config struct {
	DBPath      string
	ArchivePath string
	Mask        string
	SettleSecs  int

	BaseURL        string
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	ModelsDir      string
	ModelURL       string
	Temperature    float64
	MaxTokens      int
	ContextWindow  int
	SystemPrompt   string

	ChunkSize    int
	ChunkOverlap int
	TopK         int
	MinScore     float64
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.DBPath == "" {
		c.DBPath = "rageddy.db"
	}
	if c.Mask == "" {
		c.Mask = "**/*"
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 512
	}
	if c.ChunkOverlap <= 0 {
		c.ChunkOverlap = 50
	}
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.MinScore <= 0 {
		c.MinScore = 0.3
	}
	if c.ContextWindow <= 0 {
		c.ContextWindow = 4096
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1024
	}
	if c.ModelsDir == "" {
		c.ModelsDir = filepath.Join(filepath.Dir(c.DBPath), "models")
	}
	return c
}
