package store

import "time"

// Document is the store-internal document type.
type Document struct {
	ID         string
	Collection string
	Path       string
	Title      string
	Format     string
	Content    string
	Hash       string
	CreatedAt  time.Time
	ModifiedAt time.Time
	Active     bool
}

// SearchResult is the store-internal search result type.
type SearchResult struct {
	ID         string
	Score      float64
	Title      string
	Content    string
	Snippet    string
	Source     string
	Collection string
	Path       string
	Timestamp  time.Time
}

// Status summarises the state of the index.
type Status struct {
	TotalDocuments int
	NeedsEmbedding int
	EmbeddedChunks int
	Collections    []string
	DBPath         string
}
