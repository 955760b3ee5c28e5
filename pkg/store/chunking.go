package store

import (
	"regexp"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Chunking parameters. Chunks are sized in tokens so they line up with
// the embedding model's input window.
const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 50
)

// Chunk is a token-bounded slice of a document. Pos and End are byte
// offsets into the original content, so chunk text can be recovered
// later without storing it twice.
type Chunk struct {
	Text   string
	Pos    int
	End    int
	Tokens int
}

var sentenceRe = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)

var (
	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
)

// CountTokens counts tokens with the cl100k_base encoding, falling back
// to a chars/4 estimate when the encoding cannot be loaded (offline).
func CountTokens(text string) int {
	encoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoder = enc
		}
	})
	if encoder == nil {
		return len(text)/4 + 1
	}
	return len(encoder.Encode(text, nil, nil))
}

// ChunkText splits content into sentence-aware chunks of at most
// chunkSize tokens, with roughly overlap tokens repeated between
// adjacent chunks. Sentences longer than the chunk size are kept whole
// in their own chunk rather than split mid-sentence.
func ChunkText(content string, chunkSize, overlap int) []Chunk {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultChunkOverlap
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	sentences := splitSentences(content)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []Chunk
	var cur []span
	curTokens := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		start := cur[0].pos
		end := cur[len(cur)-1].end
		text := content[start:end]
		chunks = append(chunks, Chunk{
			Text:   text,
			Pos:    start,
			End:    end,
			Tokens: curTokens,
		})
	}

	for _, s := range sentences {
		tokens := CountTokens(s.text())

		if curTokens+tokens > chunkSize && len(cur) > 0 {
			flush()

			// Re-seed the next chunk with trailing sentences until
			// the overlap budget is spent.
			var carried []span
			carriedTokens := 0
			for i := len(cur) - 1; i >= 0; i-- {
				t := CountTokens(cur[i].text())
				if carriedTokens+t > overlap {
					break
				}
				carried = append([]span{cur[i]}, carried...)
				carriedTokens += t
			}
			cur = carried
			curTokens = carriedTokens
		}

		cur = append(cur, s)
		curTokens += tokens
	}
	flush()

	return chunks
}

// span is a sentence located in the original content.
type span struct {
	content string
	pos     int
	end     int
}

func (s span) text() string { return s.content[s.pos:s.end] }

func splitSentences(content string) []span {
	locs := sentenceRe.FindAllStringIndex(content, -1)
	if len(locs) == 0 {
		return []span{{content: content, pos: 0, end: len(content)}}
	}

	var spans []span
	last := 0
	for _, loc := range locs {
		spans = append(spans, span{content: content, pos: loc[0], end: loc[1]})
		last = loc[1]
	}

	// Trailing text without terminal punctuation still belongs to the
	// document; attach it as a final sentence.
	if tail := strings.TrimSpace(content[last:]); tail != "" {
		spans = append(spans, span{content: content, pos: last, end: len(content)})
	}

	return spans
}
