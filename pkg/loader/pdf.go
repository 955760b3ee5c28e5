package loader

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

// extractPDFText pulls the text content out of a PDF, page by page.
// Only simple-encoded text is recovered; pages whose content cannot be
// read are skipped.
func extractPDFText(path string) (string, error) {
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	var sb strings.Builder
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
		if err != nil || r == nil {
			continue
		}

		data, err := io.ReadAll(r)
		if err != nil {
			continue
		}

		page := parseContentStream(data)
		if page == "" {
			continue
		}

		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(page)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("no extractable text in pdf")
	}
	return text, nil
}

// parseContentStream walks a decoded PDF content stream and collects
// the string operands of the text-showing operators (Tj, TJ, ' and ").
// Text-positioning operators become line breaks.
func parseContentStream(data []byte) string {
	var out strings.Builder
	var pending []string

	flush := func() {
		for _, s := range pending {
			out.WriteString(s)
		}
		pending = pending[:0]
	}

	i := 0
	for i < len(data) {
		c := data[i]
		switch {
		case c == '(':
			s, next := parseLiteralString(data, i)
			pending = append(pending, s)
			i = next

		case c == '<':
			if i+1 < len(data) && data[i+1] == '<' {
				i += 2
				continue
			}
			s, next := parseHexString(data, i)
			pending = append(pending, s)
			i = next

		case c == '%':
			// Comment runs to end of line.
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}

		case isOperatorChar(c):
			start := i
			for i < len(data) && isOperatorChar(data[i]) {
				i++
			}
			switch string(data[start:i]) {
			case "Tj", "TJ":
				flush()
				out.WriteByte(' ')
			case "'", "\"":
				out.WriteByte('\n')
				flush()
			case "Td", "TD", "T*":
				pending = pending[:0]
				out.WriteByte('\n')
			case "ET":
				pending = pending[:0]
				out.WriteByte('\n')
			default:
				pending = pending[:0]
			}

		default:
			i++
		}
	}

	// Normalize whitespace without losing line structure.
	lines := strings.Split(out.String(), "\n")
	var kept []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func isOperatorChar(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c == '\'' || c == '"' || c == '*'
}

// parseLiteralString reads a parenthesized PDF string starting at
// data[start] == '(' and returns the decoded text and the index after
// the closing parenthesis.
func parseLiteralString(data []byte, start int) (string, int) {
	var sb strings.Builder
	depth := 0
	i := start

	for i < len(data) {
		c := data[i]
		switch c {
		case '\\':
			if i+1 >= len(data) {
				return sb.String(), i + 1
			}
			i++
			switch data[i] {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case 'b', 'f':
				// Ignored control characters.
			case '(', ')', '\\':
				sb.WriteByte(data[i])
			case '\n':
				// Line continuation.
			case '\r':
				if i+1 < len(data) && data[i+1] == '\n' {
					i++
				}
			default:
				if data[i] >= '0' && data[i] <= '7' {
					val := 0
					for n := 0; n < 3 && i < len(data) && data[i] >= '0' && data[i] <= '7'; n++ {
						val = val*8 + int(data[i]-'0')
						i++
					}
					i--
					sb.WriteRune(rune(val))
				}
			}
			i++

		case '(':
			if depth > 0 {
				sb.WriteByte('(')
			}
			depth++
			i++

		case ')':
			depth--
			if depth == 0 {
				return sb.String(), i + 1
			}
			sb.WriteByte(')')
			i++

		default:
			sb.WriteByte(c)
			i++
		}
	}

	return sb.String(), i
}

// parseHexString reads a <...> hex string starting at data[start] and
// returns the decoded bytes as text and the index after the closing
// bracket. Multi-byte CID text is not mapped; such strings usually
// decode to little useful content and get dropped downstream.
func parseHexString(data []byte, start int) (string, int) {
	i := start + 1
	var hexDigits strings.Builder

	for i < len(data) && data[i] != '>' {
		c := data[i]
		if c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F' {
			hexDigits.WriteByte(c)
		}
		i++
	}
	if i < len(data) {
		i++ // consume '>'
	}

	h := hexDigits.String()
	if len(h)%2 == 1 {
		h += "0"
	}

	decoded, err := hex.DecodeString(h)
	if err != nil {
		return "", i
	}

	var sb strings.Builder
	for _, b := range decoded {
		if b >= 0x20 && b < 0x7F {
			sb.WriteByte(b)
		}
	}
	return sb.String(), i
}
