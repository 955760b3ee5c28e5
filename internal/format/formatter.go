// Package format renders command output as text or JSON.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"rageddy/pkg/rag"
	"rageddy/pkg/rageddy"
	"rageddy/pkg/store"
)

// Formatter writes command results in the selected output format.
type Formatter struct {
	w    io.Writer
	json bool
}

// New creates a formatter. format is "text" or "json".
func New(w io.Writer, format string) *Formatter {
	return &Formatter{w: w, json: format == "json"}
}

// SearchResults prints a ranked result list.
func (f *Formatter) SearchResults(results []store.SearchResult) error {
	if f.json {
		return f.writeJSON(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(f.w, "No results.")
		return nil
	}

	for i, r := range results {
		title := r.Title
		if title == "" {
			title = r.Path
		}
		fmt.Fprintf(f.w, "%2d. %-40s %.3f  %s\n", i+1, truncate(title, 40), r.Score, r.Path)
		if r.Snippet != "" {
			fmt.Fprintf(f.w, "    %s\n", r.Snippet)
		}
	}
	return nil
}

// ArchiveFiles prints the archive listing with sizes and index status.
func (f *Formatter) ArchiveFiles(files []rageddy.ArchiveFile) error {
	if f.json {
		return f.writeJSON(files)
	}

	if len(files) == 0 {
		fmt.Fprintln(f.w, "Archive folder is empty.")
		return nil
	}

	var total int64
	indexed := 0
	for _, file := range files {
		mark := " "
		if file.Indexed {
			mark = "*"
			indexed++
		}
		total += file.Size
		fmt.Fprintf(f.w, "%s %-50s %10s  %s\n", mark, truncate(file.Path, 50), FormatBytes(file.Size), file.ModTime.Format("2006-01-02 15:04"))
	}

	fmt.Fprintf(f.w, "\n%d files, %s total, %d indexed\n", len(files), FormatBytes(total), indexed)
	return nil
}

// Status prints index counters and model info.
func (f *Formatter) Status(status store.Status, model string, baseURL string) error {
	if f.json {
		return f.writeJSON(map[string]interface{}{
			"documents":       status.TotalDocuments,
			"needs_embedding": status.NeedsEmbedding,
			"embedded_chunks": status.EmbeddedChunks,
			"collections":     status.Collections,
			"db_path":         status.DBPath,
			"model":           model,
			"base_url":        baseURL,
		})
	}

	fmt.Fprintf(f.w, "Database:        %s\n", status.DBPath)
	fmt.Fprintf(f.w, "Documents:       %d\n", status.TotalDocuments)
	fmt.Fprintf(f.w, "Needs embedding: %d\n", status.NeedsEmbedding)
	fmt.Fprintf(f.w, "Embedded chunks: %d\n", status.EmbeddedChunks)
	if len(status.Collections) > 0 {
		fmt.Fprintf(f.w, "Collections:     %s\n", strings.Join(status.Collections, ", "))
	}
	fmt.Fprintf(f.w, "Model:           %s\n", model)
	fmt.Fprintf(f.w, "Endpoint:        %s\n", baseURL)
	return nil
}

// Document prints a full document.
func (f *Formatter) Document(doc *store.Document) error {
	if f.json {
		return f.writeJSON(doc)
	}

	fmt.Fprintf(f.w, "Title:      %s\n", doc.Title)
	fmt.Fprintf(f.w, "Path:       %s\n", doc.Path)
	fmt.Fprintf(f.w, "Collection: %s\n", doc.Collection)
	fmt.Fprintf(f.w, "Format:     %s\n", doc.Format)
	fmt.Fprintf(f.w, "Modified:   %s\n", doc.ModifiedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(f.w, "\n%s\n", doc.Content)
	return nil
}

// Sources prints answer citations.
func (f *Formatter) Sources(sources []rag.Source) error {
	if f.json {
		return f.writeJSON(sources)
	}

	if len(sources) == 0 {
		return nil
	}

	fmt.Fprintln(f.w, "\nSources:")
	for _, s := range sources {
		title := s.Title
		if title == "" {
			title = s.File
		}
		fmt.Fprintf(f.w, "  - %s (%s)\n", title, s.File)
		if s.Snippet != "" {
			fmt.Fprintf(f.w, "    %s\n", s.Snippet)
		}
	}
	return nil
}

// Collections prints registered collections.
func (f *Formatter) Collections(collections []store.Collection) error {
	if f.json {
		return f.writeJSON(collections)
	}

	if len(collections) == 0 {
		fmt.Fprintln(f.w, "No collections.")
		return nil
	}

	for _, c := range collections {
		fmt.Fprintf(f.w, "%-20s %-40s %s\n", c.Name, c.Path, c.Mask)
	}
	return nil
}

func (f *Formatter) writeJSON(v interface{}) error {
	enc := json.NewEncoder(f.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatBytes renders a byte count in human units.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
