package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
)

// MockLLM is a deterministic in-process model for tests and offline
// development. Embeddings are seeded from the input text, so identical
// texts always produce identical vectors and similar usage patterns are
// reproducible across runs.
type MockLLM struct {
	dimensions int
	response   string
}

// NewMockLLM creates a mock producing embeddings of the given
// dimension. response, when non-empty, overrides the canned completion
// text.
func NewMockLLM(dimensions int, response string) *MockLLM {
	if dimensions <= 0 {
		dimensions = 64
	}
	return &MockLLM{dimensions: dimensions, response: response}
}

// Generate implements LLM.
func (m *MockLLM) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.response != "" {
		return m.response, nil
	}
	return fmt.Sprintf("mock response to %d chars of prompt", len(prompt)), nil
}

// GenerateStream implements LLM, emitting the canned response word by
// word.
func (m *MockLLM) GenerateStream(ctx context.Context, prompt string, opts GenerateOptions, onToken func(string)) (string, error) {
	full, err := m.Generate(ctx, prompt, opts)
	if err != nil {
		return "", err
	}

	if onToken != nil {
		words := strings.SplitAfter(full, " ")
		for _, w := range words {
			if err := ctx.Err(); err != nil {
				return full, err
			}
			onToken(w)
		}
	}

	return full, nil
}

// Embed implements LLM with a deterministic pseudo-random vector seeded
// from the text.
func (m *MockLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, m.dimensions)
	state := seed
	for i := range vec {
		// xorshift64
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		vec[i] = float32(int64(state%2000)-1000) / 1000.0
	}

	// Bias a few components by word content so texts sharing words end
	// up closer than unrelated texts.
	for _, word := range strings.Fields(strings.ToLower(text)) {
		wh := fnv.New32a()
		wh.Write([]byte(word))
		idx := int(wh.Sum32()) % m.dimensions
		if idx < 0 {
			idx += m.dimensions
		}
		vec[idx] += 2.0
	}

	normalizeVector(vec)
	return vec, nil
}

// EmbedBatch implements LLM.
func (m *MockLLM) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}

// Info implements LLM.
func (m *MockLLM) Info() ModelInfo {
	return ModelInfo{
		ChatModel:      "mock",
		EmbeddingModel: fmt.Sprintf("mock-%dd", m.dimensions),
		ContextWindow:  DefaultContextWindow,
	}
}

// Close implements LLM.
func (m *MockLLM) Close() error { return nil }
