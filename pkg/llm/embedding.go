package llm

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// EmbeddingGenerator wraps an LLM with input truncation, batching and
// L2 normalization so stored vectors work with cosine distance.
type EmbeddingGenerator struct {
	llm       LLM
	maxChars  int
	batchSize int
}

// NewEmbeddingGenerator creates a generator. maxChars caps the input
// size per text (0 means 8000), batchSize caps texts per request
// (0 means 16).
func NewEmbeddingGenerator(llm LLM, maxChars, batchSize int) *EmbeddingGenerator {
	if maxChars <= 0 {
		maxChars = 8000
	}
	if batchSize <= 0 {
		batchSize = 16
	}
	return &EmbeddingGenerator{llm: llm, maxChars: maxChars, batchSize: batchSize}
}

// Generate embeds one text.
func (g *EmbeddingGenerator) Generate(ctx context.Context, text string) ([]float32, error) {
	text = g.prepare(text)
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	vec, err := g.llm.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("model returned empty embedding")
	}

	normalizeVector(vec)
	return vec, nil
}

// GenerateBatch embeds multiple texts, batching requests. The returned
// slice is parallel to texts.
func (g *EmbeddingGenerator) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	prepared := make([]string, len(texts))
	for i, t := range texts {
		prepared[i] = g.prepare(t)
		if prepared[i] == "" {
			return nil, fmt.Errorf("cannot embed empty text at index %d", i)
		}
	}

	results := make([][]float32, 0, len(texts))
	for start := 0; start < len(prepared); start += g.batchSize {
		end := start + g.batchSize
		if end > len(prepared) {
			end = len(prepared)
		}

		vecs, err := g.llm.EmbedBatch(ctx, prepared[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch failed: %w", err)
		}

		for i, vec := range vecs {
			if len(vec) == 0 {
				return nil, fmt.Errorf("model returned empty embedding at index %d", start+i)
			}
			normalizeVector(vec)
			results = append(results, vec)
		}
	}

	return results, nil
}

func (g *EmbeddingGenerator) prepare(text string) string {
	text = strings.TrimSpace(text)
	if len(text) > g.maxChars {
		text = text[:g.maxChars]
	}
	return text
}

// normalizeVector scales vec to unit length in place. Zero vectors are
// left untouched.
func normalizeVector(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}

	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}
