package ports

import (
	"context"
	"iter"

	"github.com/aretw0/canvas/pkg/domain"
)

// Schema describes a structured output the model must produce.
// Parameters is a JSON Schema object.
type Schema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ModelRequest is one call to a model.
type ModelRequest struct {
	// Step names the calling node for logs and metrics.
	Step     string
	Messages []domain.Message
	// Schema, when set, forces a structured payload returned in Args.
	Schema      *Schema
	Temperature *float64
	MaxTokens   int
}

// ModelResponse is the result of a blocking call.
type ModelResponse struct {
	Model   string
	Content string
	// Args is the structured payload, nil when the model produced none.
	Args map[string]any
}

// ModelChunk is one element of a stream.
type ModelChunk struct {
	// Delta is the text produced since the previous chunk.
	Delta string
	// Args is the cumulative structured payload parsed so far, nil when the
	// accumulated output is not yet a complete object.
	Args map[string]any
}

// ModelInvoker is the model capability consumed by every node.
type ModelInvoker interface {
	Name() string
	Invoke(ctx context.Context, req ModelRequest) (*ModelResponse, error)
	// Stream yields chunks until the model is done. A non-nil error ends the sequence.
	Stream(ctx context.Context, req ModelRequest) iter.Seq2[ModelChunk, error]
}
