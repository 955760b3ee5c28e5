package rageddy

import (
	"context"
	"fmt"

	"rageddy/pkg/llm"
	"rageddy/pkg/loader"
	"rageddy/pkg/rag"
	"rageddy/pkg/store"
)

// Engine is the top-level handle over the index, archive and model.
type Engine struct {
	cfg      Config
	store    *store.Store
	model    llm.LLM
	embedder *llm.EmbeddingGenerator
	loader   *loader.Loader
	queries  *rag.QueryEngine
	ret      *rag.Retriever
}

// New creates an engine backed by an OpenAI-compatible model server.
func New(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()

	model := llm.NewAPIClient(llm.APIConfig{
		BaseURL:        cfg.BaseURL,
		APIKey:         cfg.APIKey,
		ChatModel:      cfg.ChatModel,
		EmbeddingModel: cfg.EmbeddingModel,
		ContextWindow:  cfg.ContextWindow,
	})

	return NewWithModel(cfg, model)
}

// NewWithModel creates an engine over an explicit model, which tests
// use to run against the mock.
func NewWithModel(cfg Config, model llm.LLM) (*Engine, error) {
	cfg = cfg.withDefaults()

	s, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	embedder := llm.NewEmbeddingGenerator(model, 0, 0)
	ret := rag.NewRetriever(s, embedder, cfg.EmbeddingModel)
	queries := rag.NewQueryEngine(ret, model, rag.NewContextBuilder(cfg.ContextWindow, cfg.MaxTokens), rag.EngineOptions{
		TopK:         cfg.TopK,
		MinScore:     cfg.MinScore,
		Collection:   DefaultCollection,
		SystemPrompt: cfg.SystemPrompt,
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
	})

	e := &Engine{
		cfg:      cfg,
		store:    s,
		model:    model,
		embedder: embedder,
		loader:   loader.New(cfg.Mask),
		queries:  queries,
		ret:      ret,
	}

	if cfg.ArchivePath != "" {
		if err := s.AddCollection(DefaultCollection, cfg.ArchivePath, cfg.Mask); err != nil {
			s.Close()
			return nil, err
		}
	}

	return e, nil
}

// Store exposes the underlying store for commands that need direct
// document access.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// ModelInfo describes the configured model.
func (e *Engine) ModelInfo() llm.ModelInfo {
	return e.model.Info()
}

// Ask answers a question over the indexed archive.
func (e *Engine) Ask(ctx context.Context, question string) (rag.Answer, error) {
	return e.queries.Ask(ctx, question)
}

// AskStream answers a question, streaming tokens through onToken.
func (e *Engine) AskStream(ctx context.Context, question string, onToken func(string)) (rag.Answer, error) {
	return e.queries.AskStream(ctx, question, onToken)
}

// Search runs a keyword search over the index.
func (e *Engine) Search(query string, limit int) ([]store.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	return e.store.SearchFTS(query, "", limit)
}

// VectorSearch runs a semantic search over the index.
func (e *Engine) VectorSearch(ctx context.Context, query string, limit int) ([]store.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	return e.ret.Retrieve(ctx, query, rag.Options{Mode: rag.ModeVector, Limit: limit})
}

// Status reports index counters plus model info.
func (e *Engine) Status() (store.Status, error) {
	return e.store.GetStatus()
}

// Close releases the store and model client.
func (e *Engine) Close() error {
	if err := e.model.Close(); err != nil {
		return err
	}
	return e.store.Close()
}
