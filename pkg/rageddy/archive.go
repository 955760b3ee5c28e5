package rageddy

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"rageddy/pkg/llm"
	"rageddy/pkg/loader"
	"rageddy/pkg/watcher"
)

// ArchiveFile is one entry in an archive listing.
type ArchiveFile struct {
	Path    string
	Size    int64
	ModTime time.Time
	Indexed bool
}

// ListArchive walks the archive folder and reports every supported
// file with its index status.
func (e *Engine) ListArchive() ([]ArchiveFile, error) {
	if e.cfg.ArchivePath == "" {
		return nil, fmt.Errorf("no archive folder configured")
	}

	var files []ArchiveFile
	err := filepath.WalkDir(e.cfg.ArchivePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name := d.Name(); name != filepath.Base(e.cfg.ArchivePath) && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !loader.Supported(path) {
			return nil
		}

		rel, err := filepath.Rel(e.cfg.ArchivePath, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		hash, err := e.store.GetDocumentHash(DefaultCollection, rel)
		if err != nil {
			return err
		}

		files = append(files, ArchiveFile{
			Path:    rel,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Indexed: hash != "",
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk archive: %w", err)
	}

	return files, nil
}

// WatchEvent reports the outcome of handling one settled file change.
type WatchEvent struct {
	Path    string
	Removed bool
	Err     error
}

// Watch monitors the archive folder and keeps the index current,
// reporting each handled change through onEvent. Blocks until ctx is
// cancelled.
func (e *Engine) Watch(ctx context.Context, onEvent func(WatchEvent)) error {
	if e.cfg.ArchivePath == "" {
		return fmt.Errorf("no archive folder configured")
	}

	settle := time.Duration(e.cfg.SettleSecs) * time.Second
	w := watcher.New(e.cfg.ArchivePath, settle, loader.Supported)

	events := make(chan watcher.Event, 16)
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Watch(ctx, events)
	}()

	for {
		select {
		case <-ctx.Done():
			return <-errCh

		case ev := <-events:
			out := WatchEvent{Path: ev.Path, Removed: ev.Removed}
			if ev.Removed {
				out.Err = e.RemoveFile(ev.Path)
			} else {
				out.Err = e.IndexFile(ctx, ev.Path)
			}
			if onEvent != nil {
				onEvent(out)
			}
		}
	}
}

// PullModel downloads a GGUF model file. An empty ref pulls the
// configured default model.
func (e *Engine) PullModel(ctx context.Context, ref string, onProgress func(downloaded, total int64)) (string, error) {
	if ref == "" {
		ref = e.cfg.ModelURL
	}
	if ref == "" {
		ref = llm.DefaultModelURL
	}

	d := llm.NewDownloader(e.cfg.ModelsDir)
	if onProgress != nil {
		d.OnProgress(onProgress)
	}
	return d.Download(ctx, ref)
}
