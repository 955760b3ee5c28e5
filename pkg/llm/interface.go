// Package llm abstracts the local language model: text generation,
// streaming, and embeddings over an OpenAI-compatible HTTP API, plus a
// GGUF model downloader and a deterministic mock for tests.
package llm

import "context"

// LLM is the model interface the rest of the system programs against.
type LLM interface {
	// Generate produces a full completion for the given prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// GenerateStream produces a completion incrementally, invoking
	// onToken for each text fragment as it arrives.
	GenerateStream(ctx context.Context, prompt string, opts GenerateOptions, onToken func(string)) (string, error)

	// Embed returns the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns embedding vectors for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Info describes the backing model.
	Info() ModelInfo

	// Close releases any resources held by the client.
	Close() error
}

// GenerateOptions controls a single generation call. Zero values fall
// back to the model defaults.
type GenerateOptions struct {
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

// ModelInfo describes the models behind a client.
type ModelInfo struct {
	ChatModel      string
	EmbeddingModel string
	BaseURL        string
	ContextWindow  int
}

// Default model parameters.
const (
	DefaultTemperature   = 0.3
	DefaultMaxTokens     = 1024
	DefaultContextWindow = 4096
)
