// Package rag implements retrieval and answer generation: hybrid
// search over the store, context assembly under a token budget, and
// the query engine that drives the model.
package rag

import (
	"context"
	"encoding/json"
	"fmt"

	"rageddy/pkg/llm"
	"rageddy/pkg/store"
)

// Mode selects the retrieval strategy.
type Mode string

const (
	ModeFTS    Mode = "fts"
	ModeVector Mode = "vector"
	ModeHybrid Mode = "hybrid"
)

// Options controls a retrieval call.
type Options struct {
	Mode       Mode
	Collection string
	Limit      int
	// MinScore drops vector matches below this cosine similarity.
	// Applied to the vector leg only; BM25 scores live on a different
	// scale.
	MinScore float64
}

// Retriever finds relevant documents for a query.
type Retriever struct {
	store    *store.Store
	embedder *llm.EmbeddingGenerator
	model    string
}

// NewRetriever creates a retriever. model names the embedding model and
// keys the query-embedding cache.
func NewRetriever(s *store.Store, embedder *llm.EmbeddingGenerator, model string) *Retriever {
	return &Retriever{store: s, embedder: embedder, model: model}
}

// Retrieve runs a search in the configured mode.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) ([]store.SearchResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = 5
	}
	if opts.Mode == "" {
		opts.Mode = ModeHybrid
	}

	switch opts.Mode {
	case ModeFTS:
		return r.store.SearchFTS(query, opts.Collection, opts.Limit)

	case ModeVector:
		results, err := r.retrieveVector(ctx, query, opts)
		if err != nil {
			return nil, err
		}
		return results, nil

	case ModeHybrid:
		ftsResults, err := r.store.SearchFTS(query, opts.Collection, opts.Limit)
		if err != nil {
			return nil, err
		}

		vecResults, err := r.retrieveVector(ctx, query, opts)
		if err != nil {
			// Vector search needs a reachable embedding model; fall
			// back to keyword results alone rather than fail the query.
			vecResults = nil
		}

		fused := store.ReciprocalRankFusion(ftsResults, vecResults)
		if len(fused) > opts.Limit {
			fused = fused[:opts.Limit]
		}
		return fused, nil

	default:
		return nil, fmt.Errorf("unknown retrieval mode: %s", opts.Mode)
	}
}

func (r *Retriever) retrieveVector(ctx context.Context, query string, opts Options) ([]store.SearchResult, error) {
	embedding, err := r.queryEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := r.store.SearchVector(embedding, opts.Collection, opts.Limit)
	if err != nil {
		return nil, err
	}

	if opts.MinScore > 0 {
		kept := results[:0]
		for _, res := range results {
			if res.Score >= opts.MinScore {
				kept = append(kept, res)
			}
		}
		results = kept
	}

	return results, nil
}

// queryEmbedding embeds a query, caching the vector so repeated
// questions skip the embedding round trip.
func (r *Retriever) queryEmbedding(ctx context.Context, query string) ([]float32, error) {
	key := store.CacheKey(r.model, query)

	if cached, ok, err := r.store.GetCachedResult(key); err == nil && ok {
		var vec []float32
		if json.Unmarshal(cached, &vec) == nil && len(vec) > 0 {
			return vec, nil
		}
	}

	vec, err := r.embedder.Generate(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	if data, err := json.Marshal(vec); err == nil {
		// Cache write failures are not fatal.
		_ = r.store.SetCachedResult(key, data)
	}

	return vec, nil
}
