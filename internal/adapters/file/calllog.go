package file

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/canvas/internal/logging"
	"github.com/aretw0/canvas/pkg/ports"
)

// timestampLayout renders as 2006-01-02-15-04-05-000.
const timestampLayout = "2006-01-02-15-04-05.000"

// CallLog implements ports.CallLogger. Every call of a request lands in
// BasePath/{thread}_{request}_{timestamp}/{step}/ as input.txt (system
// prompt), prompt.txt (user turns), output.txt and metadata.json. A repeated
// step overwrites the previous attempt.
type CallLog struct {
	BasePath string
	logger   *slog.Logger
	now      func() time.Time
}

// NewCallLog creates a call log rooted at basePath (default "llm_logs").
func NewCallLog(basePath string, logger *slog.Logger) *CallLog {
	if basePath == "" {
		basePath = "llm_logs"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CallLog{BasePath: basePath, logger: logger, now: time.Now}
}

type callMetadata struct {
	ThreadID   string  `json:"threadId"`
	RequestID  string  `json:"requestId"`
	Timestamp  string  `json:"timestamp"`
	StepName   string  `json:"stepName"`
	Model      string  `json:"model"`
	DurationMS float64 `json:"durationMs"`
	Error      string  `json:"error,omitempty"`
	LoggedAt   string  `json:"loggedAt"`
}

// Dir returns the request directory a record is written to.
func (c *CallLog) Dir(rec ports.CallRecord) string {
	threadID := orDefault(rec.Request.ThreadID, "unknown-thread")
	requestID := orDefault(rec.Request.RequestID, "unknown-request")
	return filepath.Join(c.BasePath, sanitize(threadID)+"_"+sanitize(requestID)+"_"+c.stamp(rec))
}

func (c *CallLog) stamp(rec ports.CallRecord) string {
	started := rec.Request.StartedAt
	if started.IsZero() {
		started = c.now()
	}
	return strings.ReplaceAll(started.UTC().Format(timestampLayout), ".", "-")
}

// LogCall writes rec synchronously. Failures are logged and swallowed.
func (c *CallLog) LogCall(ctx context.Context, rec ports.CallRecord) {
	requestDir := c.Dir(rec)
	stepDir := filepath.Join(requestDir, sanitize(orDefault(rec.Step, "unknown-step")))

	meta := callMetadata{
		ThreadID:   rec.Request.ThreadID,
		RequestID:  rec.Request.RequestID,
		Timestamp:  c.stamp(rec),
		StepName:   rec.Step,
		Model:      rec.Model,
		DurationMS: float64(rec.Duration) / float64(time.Millisecond),
		LoggedAt:   c.now().UTC().Format(time.RFC3339Nano),
	}
	if rec.Err != nil {
		meta.Error = rec.Err.Error()
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		c.logger.Warn("failed to encode call metadata", "step", rec.Step, "err", err)
		return
	}

	files := []struct {
		name string
		data []byte
	}{
		{"input.txt", []byte(orDefault(rec.SystemPrompt, "No system prompt"))},
		{"prompt.txt", []byte(orDefault(rec.UserPrompt, "No user prompt"))},
		{"output.txt", []byte(orDefault(rec.Output, "No output"))},
		{"metadata.json", metaJSON},
	}

	if err := os.MkdirAll(stepDir, 0o755); err != nil {
		c.logger.Warn("failed to create call log directory", "step", rec.Step, "err", err)
		return
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(stepDir, f.name), f.data, 0o644); err != nil {
			c.logger.Warn("failed to write call log", "step", rec.Step, "file", f.name, "err", err)
			return
		}
	}
	c.logger.Debug("llm call logged", "step", rec.Step, "dir", requestDir)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}
