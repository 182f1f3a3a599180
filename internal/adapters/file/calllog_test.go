package file_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/canvas/internal/adapters/file"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.CallLogger = (*file.CallLog)(nil)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestCallLog_Layout(t *testing.T) {
	dir := t.TempDir()
	log := file.NewCallLog(dir, nil)

	rec := ports.CallRecord{
		Step:         "evaluateArtifact_iteration_0",
		Model:        "gemini:flash",
		SystemPrompt: "be a judge",
		UserPrompt:   "HUMAN: compare",
		Output:       `{"bestArticle":{}}`,
		Request: domain.RequestInfo{
			ThreadID:  "thread-1",
			RequestID: "req-1",
			StartedAt: time.Date(2026, 3, 4, 5, 6, 7, 89_000_000, time.UTC),
		},
		Duration: 1500 * time.Millisecond,
	}
	log.LogCall(context.Background(), rec)

	requestDir := log.Dir(rec)
	assert.Equal(t, filepath.Join(dir, "thread-1_req-1_2026-03-04-05-06-07-089"), requestDir)

	stepDir := filepath.Join(requestDir, "evaluateArtifact_iteration_0")
	assert.Equal(t, "be a judge", readFile(t, filepath.Join(stepDir, "input.txt")))
	assert.Equal(t, "HUMAN: compare", readFile(t, filepath.Join(stepDir, "prompt.txt")))
	assert.Equal(t, `{"bestArticle":{}}`, readFile(t, filepath.Join(stepDir, "output.txt")))

	var meta map[string]any
	require.NoError(t, json.Unmarshal([]byte(readFile(t, filepath.Join(stepDir, "metadata.json"))), &meta))
	assert.Equal(t, "thread-1", meta["threadId"])
	assert.Equal(t, "req-1", meta["requestId"])
	assert.Equal(t, "2026-03-04-05-06-07-089", meta["timestamp"])
	assert.Equal(t, "evaluateArtifact_iteration_0", meta["stepName"])
	assert.Equal(t, 1500.0, meta["durationMs"])
	assert.NotContains(t, meta, "error")
}

func TestCallLog_Placeholders(t *testing.T) {
	dir := t.TempDir()
	log := file.NewCallLog(dir, nil)

	rec := ports.CallRecord{Step: "reflect", Err: errors.New("boom")}
	log.LogCall(context.Background(), rec)

	// Without a start time the directory is stamped at write time.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "unknown-thread_unknown-request_")
	requestDir := filepath.Join(dir, entries[0].Name())

	stepDir := filepath.Join(requestDir, "reflect")
	assert.Equal(t, "No system prompt", readFile(t, filepath.Join(stepDir, "input.txt")))
	assert.Equal(t, "No user prompt", readFile(t, filepath.Join(stepDir, "prompt.txt")))
	assert.Equal(t, "No output", readFile(t, filepath.Join(stepDir, "output.txt")))
	assert.Contains(t, readFile(t, filepath.Join(stepDir, "metadata.json")), `"error": "boom"`)
}

func TestCallLog_UnwritableDirIsSwallowed(t *testing.T) {
	base := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(base, []byte("not a dir"), 0o644))

	assert.NotPanics(t, func() {
		file.NewCallLog(base, nil).LogCall(context.Background(), ports.CallRecord{Step: "x"})
	})
}
