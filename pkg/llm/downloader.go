package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default chat model pulled when none is present locally.
const (
	DefaultModelURL  = "https://huggingface.co/bartowski/Qwen_Qwen3-8B-GGUF/resolve/main/Qwen_Qwen3-8B-Q4_K_M.gguf"
	DefaultModelFile = "Qwen_Qwen3-8B-Q4_K_M.gguf"
)

// Downloader fetches GGUF model files into a local models directory.
type Downloader struct {
	modelsDir  string
	httpClient *http.Client
	onProgress func(downloaded, total int64)
}

// NewDownloader creates a downloader storing models under modelsDir.
func NewDownloader(modelsDir string) *Downloader {
	return &Downloader{
		modelsDir: modelsDir,
		// Model files run to several GB; no overall timeout, the
		// context controls cancellation.
		httpClient: &http.Client{Timeout: 0},
	}
}

// OnProgress registers a progress callback invoked as bytes arrive.
// total is -1 when the server does not report a content length.
func (d *Downloader) OnProgress(fn func(downloaded, total int64)) {
	d.onProgress = fn
}

// ModelPath returns the local path a model reference resolves to.
func (d *Downloader) ModelPath(ref string) string {
	return filepath.Join(d.modelsDir, fileNameForRef(ref))
}

// IsDownloaded reports whether the model file already exists locally.
func (d *Downloader) IsDownloaded(ref string) bool {
	info, err := os.Stat(d.ModelPath(ref))
	return err == nil && info.Size() > 0
}

// Download fetches a model. ref is either a full URL or a HuggingFace
// "owner/repo/file.gguf" reference. The file is written via a temp file
// and renamed, so a partial download never looks complete.
func (d *Downloader) Download(ctx context.Context, ref string) (string, error) {
	url := resolveURL(ref)
	dest := d.ModelPath(ref)

	if d.IsDownloaded(ref) {
		return dest, nil
	}

	if err := os.MkdirAll(d.modelsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create models dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: %s returned %d", url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(d.modelsDir, ".download-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	reader := &progressReader{
		reader:     resp.Body,
		total:      resp.ContentLength,
		onProgress: d.onProgress,
	}

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return "", fmt.Errorf("download interrupted: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to finish temp file: %w", err)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return "", fmt.Errorf("failed to move model into place: %w", err)
	}

	return dest, nil
}

// resolveURL expands a HuggingFace reference into a resolve URL; full
// URLs pass through unchanged.
func resolveURL(ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}

	// owner/repo/path/to/file.gguf
	parts := strings.SplitN(ref, "/", 3)
	if len(parts) == 3 {
		return fmt.Sprintf("https://huggingface.co/%s/%s/resolve/main/%s", parts[0], parts[1], parts[2])
	}

	return ref
}

func fileNameForRef(ref string) string {
	idx := strings.LastIndexByte(ref, '/')
	if idx >= 0 && idx+1 < len(ref) {
		return ref[idx+1:]
	}
	return ref
}

// progressReader counts bytes and throttles progress callbacks.
type progressReader struct {
	reader     io.Reader
	total      int64
	downloaded int64
	onProgress func(downloaded, total int64)
	lastReport time.Time
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.downloaded += int64(n)

	if r.onProgress != nil {
		now := time.Now()
		if err != nil || now.Sub(r.lastReport) >= 200*time.Millisecond {
			r.lastReport = now
			r.onProgress(r.downloaded, r.total)
		}
	}

	return n, err
}
