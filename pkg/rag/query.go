package rag

import (
	"context"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"rageddy/pkg/llm"
	"rageddy/pkg/store"
)

const defaultSystemPrompt = `You are a helpful assistant that answers questions about the user's document archive. Answer using only the provided context. Be concise, and mention which document your answer comes from when it helps.`

const noAnswerText = "I don't have enough information in the documents to answer that question."

// Source points at a document that contributed to an answer.
type Source struct {
	Title   string
	File    string
	Snippet string
	Score   float64
}

// Answer is a generated response with its supporting sources.
type Answer struct {
	Text    string
	Sources []Source
}

// QueryEngine answers questions over the indexed archive.
type QueryEngine struct {
	retriever *Retriever
	model     llm.LLM
	builder   *ContextBuilder

	topK         int
	minScore     float64
	collection   string
	systemPrompt string
	temperature  float64
	maxTokens    int
}

// EngineOptions tunes a QueryEngine; zero values take defaults.
type EngineOptions struct {
	TopK       int
	MinScore   float64
	Collection string
	// SystemPrompt replaces the built-in assistant instructions.
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

// NewQueryEngine wires a retriever, model and context builder into a
// question-answering engine.
func NewQueryEngine(retriever *Retriever, model llm.LLM, builder *ContextBuilder, opts EngineOptions) *QueryEngine {
	topK := opts.TopK
	if topK <= 0 {
		topK = 5
	}
	minScore := opts.MinScore
	if minScore == 0 {
		minScore = 0.3
	}
	sysPrompt := opts.SystemPrompt
	if sysPrompt == "" {
		sysPrompt = defaultSystemPrompt
	}

	return &QueryEngine{
		retriever:    retriever,
		model:        model,
		builder:      builder,
		topK:         topK,
		minScore:     minScore,
		collection:   opts.Collection,
		systemPrompt: sysPrompt,
		temperature:  opts.Temperature,
		maxTokens:    opts.MaxTokens,
	}
}

// Ask answers a question in one shot.
func (e *QueryEngine) Ask(ctx context.Context, question string) (Answer, error) {
	return e.ask(ctx, question, nil)
}

// AskStream answers a question, delivering tokens through onToken as
// they are generated.
func (e *QueryEngine) AskStream(ctx context.Context, question string, onToken func(string)) (Answer, error) {
	return e.ask(ctx, question, onToken)
}

func (e *QueryEngine) ask(ctx context.Context, question string, onToken func(string)) (Answer, error) {
	results, err := e.retriever.Retrieve(ctx, question, Options{
		Mode:       ModeHybrid,
		Collection: e.collection,
		Limit:      e.topK,
		MinScore:   e.minScore,
	})
	if err != nil {
		return Answer{}, err
	}

	if len(results) == 0 {
		// Nothing relevant indexed; short-circuit instead of asking
		// the model to answer from an empty context.
		if onToken != nil {
			onToken(noAnswerText)
		}
		return Answer{Text: noAnswerText}, nil
	}

	prompt := e.builder.BuildPrompt(question, results)
	opts := llm.GenerateOptions{
		SystemPrompt: e.systemPrompt,
		Temperature:  e.temperature,
		MaxTokens:    e.maxTokens,
	}

	var text string
	if onToken != nil {
		text, err = e.model.GenerateStream(ctx, prompt, opts, onToken)
	} else {
		text, err = e.model.Generate(ctx, prompt, opts)
	}
	if err != nil {
		return Answer{}, err
	}

	return Answer{
		Text:    strings.TrimSpace(text),
		Sources: collectSources(results, 3),
	}, nil
}

// collectSources picks the top results, one per file, as citations.
func collectSources(results []store.SearchResult, max int) []Source {
	seen := make(map[string]bool)
	var sources []Source

	for _, r := range results {
		file := filepath.Base(r.Path)
		if seen[file] {
			continue
		}
		seen[file] = true

		sources = append(sources, Source{
			Title:   r.Title,
			File:    file,
			Snippet: cleanSnippet(r.Snippet, r.Content, 200),
			Score:   r.Score,
		})

		if len(sources) >= max {
			break
		}
	}

	return sources
}

func cleanSnippet(snippet, content string, maxLen int) string {
	s := snippet
	if s == "" {
		s = content
	}
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxLen {
		limit := maxLen
		for limit > 0 && !utf8.RuneStart(s[limit]) {
			limit--
		}
		cut := s[:limit]
		if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
			cut = cut[:idx]
		}
		s = cut + "..."
	}
	return s
}
