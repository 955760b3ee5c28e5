package rageddy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"rageddy/pkg/loader"
	"rageddy/pkg/store"
)

// IndexReport summarizes an index run.
type IndexReport struct {
	Indexed   int
	Unchanged int
	Skipped   int
	Embedded  int
	Errors    []error
}

// IndexArchive loads every supported file from the archive folder,
// indexes it and generates embeddings. rebuild drops the existing index
// first.
func (e *Engine) IndexArchive(ctx context.Context, rebuild bool) (IndexReport, error) {
	var report IndexReport

	if e.cfg.ArchivePath == "" {
		return report, fmt.Errorf("no archive folder configured")
	}

	if rebuild {
		if err := e.store.Reset(); err != nil {
			return report, err
		}
	}

	docs, stats, err := e.loader.LoadAll(e.cfg.ArchivePath)
	if err != nil {
		return report, err
	}
	report.Skipped = stats.Skipped
	report.Errors = stats.Errors

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		changed, err := e.indexLoaded(doc)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("%s: %w", doc.Path, err))
			continue
		}
		if changed {
			report.Indexed++
		} else {
			report.Unchanged++
		}
	}

	_ = e.store.TouchCollection(DefaultCollection)

	if _, err := e.store.PruneEmbeddings(); err != nil {
		return report, err
	}

	embedded, err := e.GenerateEmbeddings(ctx, nil)
	report.Embedded = embedded
	if err != nil {
		return report, err
	}

	return report, nil
}

// UpdateArchive indexes only files that are new or changed since the
// last run, then embeds whatever is pending.
func (e *Engine) UpdateArchive(ctx context.Context) (IndexReport, error) {
	// IndexArchive already skips re-embedding unchanged content, so an
	// update is an index run without the rebuild.
	return e.IndexArchive(ctx, false)
}

// IndexFile loads and indexes a single file inside the archive folder.
// Used by the watcher when a file settles.
func (e *Engine) IndexFile(ctx context.Context, path string) error {
	rel, err := e.archiveRel(path)
	if err != nil {
		return err
	}

	doc, err := e.loader.LoadFile(e.cfg.ArchivePath, rel)
	if err != nil {
		return err
	}

	if _, err := e.indexLoaded(doc); err != nil {
		return err
	}

	_, err = e.GenerateEmbeddings(ctx, nil)
	return err
}

// RemoveFile drops a deleted archive file from the index.
func (e *Engine) RemoveFile(path string) error {
	rel, err := e.archiveRel(path)
	if err != nil {
		return err
	}
	return e.store.DeleteDocument(rel)
}

// archiveRel converts an absolute path into a slash-separated path
// relative to the archive folder.
func (e *Engine) archiveRel(path string) (string, error) {
	rel, err := filepath.Rel(e.cfg.ArchivePath, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%s is outside the archive folder", path)
	}
	return filepath.ToSlash(rel), nil
}

// indexLoaded stores a loaded document, reporting whether its content
// changed since the last index run.
func (e *Engine) indexLoaded(doc loader.Document) (bool, error) {
	newHash := store.ComputeHash(doc.Content)

	oldHash, err := e.store.GetDocumentHash(DefaultCollection, doc.Path)
	if err != nil {
		return false, err
	}
	if oldHash == newHash {
		return false, nil
	}

	err = e.store.IndexDocument(store.Document{
		Collection: DefaultCollection,
		Path:       doc.Path,
		Title:      doc.Title,
		Format:     doc.Format,
		Content:    doc.Content,
		CreatedAt:  doc.ModTime,
		ModifiedAt: doc.ModTime,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// GenerateEmbeddings chunks and embeds every document that has no
// stored vectors. onProgress, when non-nil, is called after each
// document. Returns the number of documents embedded.
func (e *Engine) GenerateEmbeddings(ctx context.Context, onProgress func(done, total int)) (int, error) {
	const batch = 64

	done := 0
	for {
		docs, err := e.store.GetDocumentsNeedingEmbedding(batch)
		if err != nil {
			return done, err
		}
		if len(docs) == 0 {
			return done, nil
		}

		total := done + len(docs)
		for _, doc := range docs {
			if err := ctx.Err(); err != nil {
				return done, err
			}

			chunks := store.ChunkText(doc.Content, e.cfg.ChunkSize, e.cfg.ChunkOverlap)
			if len(chunks) == 0 {
				// Nothing embeddable; record an empty marker chunk so
				// the document stops showing up as pending.
				chunks = []store.Chunk{{Text: doc.Content, Pos: 0, End: len(doc.Content)}}
			}

			texts := make([]string, len(chunks))
			for i, c := range chunks {
				texts[i] = c.Text
			}

			vecs, err := e.embedder.GenerateBatch(ctx, texts)
			if err != nil {
				return done, fmt.Errorf("embedding %q failed: %w", doc.Title, err)
			}

			if err := e.store.StoreChunkEmbeddings(doc.Hash, chunks, e.cfg.EmbeddingModel, vecs); err != nil {
				return done, err
			}
			slog.Debug("embedded document", "title", doc.Title, "chunks", len(chunks))

			done++
			if onProgress != nil {
				onProgress(done, total)
			}
		}
	}
}
