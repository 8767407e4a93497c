package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"FinCollect/internal/domain/repository"
)

// FileSink writes each artifact as a file under dir. Files appear atomically:
// data goes to a temp file that is renamed into place.
type FileSink struct {
	dir string
}

// NewFileSink creates dir if needed.
func NewFileSink(dir string) (repository.ExportSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("export dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

func (s *FileSink) Write(ctx context.Context, artifactName string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := sanitizeArtifactName(artifactName)
	if name == "" {
		return fmt.Errorf("empty artifact name")
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

func (s *FileSink) Close() error { return nil }

// sanitizeArtifactName keeps symbols like "BTC/USDT" from escaping the export dir.
func sanitizeArtifactName(name string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", string(os.PathSeparator), "_")
	name = r.Replace(strings.TrimSpace(name))
	if name == "." || name == ".." {
		return ""
	}
	return name
}
