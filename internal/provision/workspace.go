package provision

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/demoforge/demoforge/internal/codegen"
)

// workspace is the ephemeral directory holding one run's generated file
// bundles. It is owned by exactly one provisioning run and removed on every
// exit path; removal failure is logged, never propagated.
type workspace struct {
	root   string
	logger *slog.Logger
}

func newWorkspace(logger *slog.Logger) (*workspace, error) {
	root, err := os.MkdirTemp("", "demoforge-")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &workspace{root: root, logger: logger}, nil
}

// writeBundle materializes a generated bundle under a named subdirectory
// and returns its path.
func (w *workspace) writeBundle(name string, files []codegen.File) (string, error) {
	dir := filepath.Join(w.root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create bundle dir %s: %w", name, err)
	}

	for _, f := range files {
		rel := filepath.Clean(f.Path)
		if rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
			return "", fmt.Errorf("bundle file escapes its directory: %q", f.Path)
		}

		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", fmt.Errorf("create dir for %s: %w", rel, err)
		}
		if err := os.WriteFile(path, []byte(f.Content), 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", rel, err)
		}
	}

	return dir, nil
}

func (w *workspace) cleanup() {
	if err := os.RemoveAll(w.root); err != nil {
		w.logger.Warn("failed to remove workspace", "root", w.root, "error", err)
	}
}
