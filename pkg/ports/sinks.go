package ports

import (
	"context"
	"time"

	"github.com/aretw0/canvas/pkg/domain"
)

// Searcher retrieves ranked snippets for a query. The result may be empty.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)
}

// AuditStore is a durable sink for generation runs.
// Callers treat failures as best-effort and never propagate them.
type AuditStore interface {
	// Put writes content at path, relative to the run directory.
	Put(ctx context.Context, runID, path string, content []byte) error
}

// CallRecord is one logged model call.
type CallRecord struct {
	Step         string
	Model        string
	SystemPrompt string
	UserPrompt   string
	Output       string
	Request      domain.RequestInfo
	Duration     time.Duration
	Err          error
}

// CallLogger is a fire-and-forget sink for model calls. Implementations
// must not block the caller and swallow their own failures.
type CallLogger interface {
	LogCall(ctx context.Context, rec CallRecord)
}
