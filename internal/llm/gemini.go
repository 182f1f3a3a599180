package llm

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
	genai "google.golang.org/genai"
)

// Gemini is a thin wrapper around the official genai client.
// It only focuses on the API call itself. Cross-cutting concerns
// (logging, hooks, call logs) are applied via Middleware.
type Gemini struct {
	cli   *genai.Client
	model string
}

// NewGemini creates a client for the Gemini API. An empty apiKey lets the
// SDK read GEMINI_API_KEY / GOOGLE_API_KEY from the environment.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	return &Gemini{cli: cli, model: model}, nil
}

func (g *Gemini) Name() string { return "gemini:" + g.model }

func (g *Gemini) request(req ports.ModelRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	system, turns := splitPrompt(req.Messages)
	contents := make([]*genai.Content, 0, len(turns))
	for _, m := range turns {
		role := genai.Role(genai.RoleUser)
		if m.Role == domain.RoleAI {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	if len(contents) == 0 {
		// The API rejects a request made of a system instruction only.
		contents = append(contents, genai.NewContentFromText(system, genai.RoleUser))
		system = ""
	}

	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseJsonSchema = req.Schema.Parameters
	}
	return contents, cfg
}

func (g *Gemini) Invoke(ctx context.Context, req ports.ModelRequest) (*ports.ModelResponse, error) {
	contents, cfg := g.request(req)
	resp, err := g.cli.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 {
		return nil, errors.New("gemini: empty candidates")
	}
	out := &ports.ModelResponse{Model: g.model, Content: resp.Text()}
	if req.Schema != nil {
		out.Args = ParseObject(out.Content)
	}
	return out, nil
}

func (g *Gemini) Stream(ctx context.Context, req ports.ModelRequest) iter.Seq2[ports.ModelChunk, error] {
	return func(yield func(ports.ModelChunk, error) bool) {
		contents, cfg := g.request(req)
		var acc strings.Builder
		for resp, err := range g.cli.Models.GenerateContentStream(ctx, g.model, contents, cfg) {
			if err != nil {
				yield(ports.ModelChunk{}, err)
				return
			}
			delta := resp.Text()
			acc.WriteString(delta)
			chunk := ports.ModelChunk{Delta: delta}
			if req.Schema != nil {
				chunk.Args = ParseObject(acc.String())
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}
