package file

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Audit implements ports.AuditStore. Each run is a directory under BasePath.
type Audit struct {
	BasePath string
}

// NewAudit creates an audit store rooted at basePath (default ".canvas/audit").
func NewAudit(basePath string) *Audit {
	if basePath == "" {
		basePath = filepath.Join(".canvas", "audit")
	}
	return &Audit{BasePath: basePath}
}

// Put writes content at BasePath/runID/path.
func (a *Audit) Put(ctx context.Context, runID, path string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest := filepath.Join(a.BasePath, runID, filepath.FromSlash(path))
	// Reject paths escaping the run directory.
	rel, err := filepath.Rel(filepath.Join(a.BasePath, runID), dest)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("invalid audit path %q", path)
	}
	return writeAtomic(dest, content)
}
