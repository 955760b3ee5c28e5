package rag

import (
	"fmt"
	"strings"

	"rageddy/pkg/store"
)

const qaPromptTemplate = `Context information is below.
---------------------
%s
---------------------
Given the context information and not prior knowledge, answer the query.
If you cannot find the answer in the context, say "I don't have enough information in the documents to answer that question."

Query: %s
Answer: `

// ContextBuilder assembles retrieved passages into a prompt that fits
// the model's context window.
type ContextBuilder struct {
	contextWindow int
	answerReserve int
}

// NewContextBuilder creates a builder. answerReserve tokens are kept
// free for the model's answer; zero values take defaults.
func NewContextBuilder(contextWindow, answerReserve int) *ContextBuilder {
	if contextWindow <= 0 {
		contextWindow = 4096
	}
	if answerReserve <= 0 {
		answerReserve = 1024
	}
	return &ContextBuilder{contextWindow: contextWindow, answerReserve: answerReserve}
}

// BuildPrompt renders the QA prompt from retrieved results, dropping
// trailing passages that would overflow the token budget. At least one
// passage is always included, truncated if necessary.
func (b *ContextBuilder) BuildPrompt(question string, results []store.SearchResult) string {
	budget := b.contextWindow - b.answerReserve - store.CountTokens(fmt.Sprintf(qaPromptTemplate, "", question))
	if budget < 128 {
		budget = 128
	}

	var blocks []string
	used := 0
	for i, r := range results {
		block := formatPassage(r)
		tokens := store.CountTokens(block)

		if used+tokens > budget {
			if i == 0 {
				blocks = append(blocks, truncateToTokens(block, budget))
			}
			break
		}

		blocks = append(blocks, block)
		used += tokens
	}

	contextText := strings.Join(blocks, "\n\n")
	return fmt.Sprintf(qaPromptTemplate, contextText, question)
}

func formatPassage(r store.SearchResult) string {
	header := r.Title
	if header == "" {
		header = r.Path
	}
	return fmt.Sprintf("[Source: %s]\n%s", header, strings.TrimSpace(r.Content))
}

// truncateToTokens cuts text down to roughly the given token budget,
// breaking on a word boundary.
func truncateToTokens(text string, tokens int) string {
	if store.CountTokens(text) <= tokens {
		return text
	}

	// Tokens average about four characters; trim and re-check.
	limit := tokens * 4
	if limit > len(text) {
		limit = len(text)
	}
	for limit > 0 && store.CountTokens(text[:limit]) > tokens {
		limit = limit * 9 / 10
	}
	if limit <= 0 {
		return ""
	}

	cut := text[:limit]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return cut
}
