// Package loader reads documents from an archive folder and converts
// them to plain text. PDF, plain text, markdown, HTML and CSV files are
// supported; everything else is skipped.
package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Document is a loaded file, converted to plain text.
type Document struct {
	Path    string // relative to the archive root, slash separated
	Title   string
	Format  string
	Content string
	Size    int64
	ModTime time.Time
}

// Stats summarizes a LoadAll run.
type Stats struct {
	Loaded  int
	Skipped int
	Errors  []error
	// BytesByFormat totals the loaded file sizes per document format.
	BytesByFormat map[string]int64
}

// formats maps file extensions to document formats.
var formats = map[string]string{
	".pdf":  "pdf",
	".txt":  "txt",
	".md":   "md",
	".html": "html",
	".htm":  "html",
	".csv":  "csv",
}

// Supported reports whether a file can be loaded, by extension.
func Supported(path string) bool {
	_, ok := formats[strings.ToLower(filepath.Ext(path))]
	return ok
}

// SupportedExtensions lists the loadable extensions, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(formats))
	for ext := range formats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Loader walks an archive folder and loads matching documents.
type Loader struct {
	mask string
}

// New creates a loader. mask is a doublestar glob matched against the
// path relative to the archive root; empty means match everything.
func New(mask string) *Loader {
	if mask == "" {
		mask = "**/*"
	}
	return &Loader{mask: mask}
}

// LoadAll loads every supported file under root that matches the mask.
// A file that fails to load is recorded in stats and skipped; the walk
// continues.
func (l *Loader) LoadAll(root string) ([]Document, Stats, error) {
	var docs []Document
	stats := Stats{BytesByFormat: make(map[string]int64)}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Hidden directories hold editor state and VCS data.
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if !Supported(rel) {
			stats.Skipped++
			return nil
		}

		matched, err := doublestar.Match(l.mask, rel)
		if err != nil {
			return fmt.Errorf("bad mask %q: %w", l.mask, err)
		}
		if !matched {
			stats.Skipped++
			return nil
		}

		doc, err := l.LoadFile(root, rel)
		if err != nil {
			stats.Errors = append(stats.Errors, fmt.Errorf("%s: %w", rel, err))
			return nil
		}

		docs = append(docs, doc)
		stats.Loaded++
		stats.BytesByFormat[doc.Format] += doc.Size
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	return docs, stats, nil
}

// LoadFile loads a single file given its path relative to root.
func (l *Loader) LoadFile(root, rel string) (Document, error) {
	full := filepath.Join(root, filepath.FromSlash(rel))

	info, err := os.Stat(full)
	if err != nil {
		return Document{}, err
	}

	format, ok := formats[strings.ToLower(filepath.Ext(rel))]
	if !ok {
		return Document{}, fmt.Errorf("unsupported file type: %s", rel)
	}

	var content, title string
	switch format {
	case "pdf":
		content, err = extractPDFText(full)
		title = titleFromFileName(rel)
	case "html":
		data, readErr := readTextFile(full)
		if readErr != nil {
			return Document{}, readErr
		}
		content, title = stripHTML(data)
		if title == "" {
			title = titleFromFileName(rel)
		}
	case "csv":
		data, readErr := readTextFile(full)
		if readErr != nil {
			return Document{}, readErr
		}
		content = "CSV File: " + filepath.Base(rel) + "\n\n" + data
		title = titleFromFileName(rel)
	case "md":
		content, err = readTextFile(full)
		title = markdownTitle(content)
		if title == "" {
			title = titleFromFileName(rel)
		}
	default: // txt
		content, err = readTextFile(full)
		title = titleFromFileName(rel)
	}
	if err != nil {
		return Document{}, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return Document{}, fmt.Errorf("no text content in %s", rel)
	}

	return Document{
		Path:    rel,
		Title:   title,
		Format:  format,
		Content: content,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// titleFromFileName derives a readable title from a file name.
func titleFromFileName(rel string) string {
	name := filepath.Base(rel)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return strings.TrimSpace(name)
}

// markdownTitle returns the first level-1 heading, if any.
func markdownTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
		// Stop at the first non-blank, non-heading content.
		if line != "" && !strings.HasPrefix(line, "#") {
			break
		}
	}
	return ""
}
