package llm

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI implements ports.ModelInvoker using the official openai-go SDK
// (chat completions). BaseURL makes it usable with compatible servers.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates a chat completion client.
func NewOpenAI(apiKey, baseURL, model string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key missing")
	}
	if model == "" {
		return nil, errors.New("openai model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAI{client: openai.NewClient(opts...), model: model}, nil
}

func (o *OpenAI) Name() string { return "openai:" + o.model }

func (o *OpenAI) params(req ports.ModelRequest) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case domain.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case domain.RoleAI:
			msgs = append(msgs, openai.ChatCompletionMessageParamOfAssistant(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	p := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: msgs,
	}
	if req.Temperature != nil {
		p.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		p.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Schema != nil {
		p.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        req.Schema.Name,
					Description: openai.String(req.Schema.Description),
					Schema:      req.Schema.Parameters,
				},
			},
		}
	}
	return p
}

func (o *OpenAI) Invoke(ctx context.Context, req ports.ModelRequest) (*ports.ModelResponse, error) {
	resp, err := o.client.Chat.Completions.New(ctx, o.params(req))
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: empty choices")
	}
	out := &ports.ModelResponse{Model: resp.Model, Content: resp.Choices[0].Message.Content}
	if req.Schema != nil {
		out.Args = ParseObject(out.Content)
	}
	return out, nil
}

func (o *OpenAI) Stream(ctx context.Context, req ports.ModelRequest) iter.Seq2[ports.ModelChunk, error] {
	return func(yield func(ports.ModelChunk, error) bool) {
		stream := o.client.Chat.Completions.NewStreaming(ctx, o.params(req))
		defer stream.Close()

		var acc strings.Builder
		for stream.Next() {
			cur := stream.Current()
			if len(cur.Choices) == 0 {
				continue
			}
			delta := cur.Choices[0].Delta.Content
			acc.WriteString(delta)
			chunk := ports.ModelChunk{Delta: delta}
			if req.Schema != nil {
				chunk.Args = ParseObject(acc.String())
			}
			if !yield(chunk, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield(ports.ModelChunk{}, err)
		}
	}
}
