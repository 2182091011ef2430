package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/minicomputer-shop/blog-harvester/internal/domain"
)

// filePublisher writes the document to a local path atomically.
type filePublisher struct {
	id   string
	path string
	log  Logger
}

func newFilePublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.File == nil || cfg.File.Path == "" {
		return nil, fmt.Errorf("publisher %q missing file path", cfg.ID)
	}
	return &filePublisher{id: cfg.ID, path: cfg.File.Path, log: ensureLogger(log)}, nil
}

func (p *filePublisher) ID() string   { return p.id }
func (p *filePublisher) Type() string { return TypeFile }

// Publish writes a temp file next to the target and renames it over the
// target, so readers never observe a partial document.
func (p *filePublisher) Publish(ctx context.Context, payload Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(p.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(payload.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		return fmt.Errorf("rename into %s: %w", p.path, err)
	}

	p.log.DebugObj("document written", "publisher_file_written", map[string]any{
		"path":     p.path,
		"bytes":    len(payload.Body),
		"articles": payload.Articles,
		"kind":     payload.Kind(),
	})
	return nil
}

// Load reads the document currently stored at the target path.
func (p *filePublisher) Load(ctx context.Context) (*domain.OutputDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadDocument(p.path)
}

// ReadDocument decodes an output document from disk. A missing file yields an
// error matching os.ErrNotExist.
func ReadDocument(path string) (*domain.OutputDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	var doc domain.OutputDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", path, err)
	}
	return &doc, nil
}
