// Package mcp exposes a canvas Engine as Model Context Protocol tools so
// agents can drive artifact generation.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/canvas"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	graphURI        = "canvas://graph"
	threadURIPrefix = "canvas://threads/"
)

// Engine is the part of canvas.Engine the MCP server needs.
type Engine interface {
	Run(ctx context.Context, threadID string, in domain.Input) (*canvas.Turn, error)
	Thread(ctx context.Context, threadID string) (*domain.ConversationState, error)
	Threads(ctx context.Context) ([]string, error)
	Describe() string
}

// InvokeArgs are the arguments of the invoke_canvas tool.
type InvokeArgs struct {
	ThreadID            string                     `json:"thread_id,omitempty"`
	Message             string                     `json:"message,omitempty"`
	Next                string                     `json:"next,omitempty"`
	Theme               *domain.ThemeSelector      `json:"theme,omitempty"`
	CodeAction          *domain.CodeActionSelector `json:"code_action,omitempty"`
	HighlightedText     *domain.HighlightedText    `json:"highlighted_text,omitempty"`
	HighlightedCode     *domain.HighlightedCode    `json:"highlighted_code,omitempty"`
	CustomQuickActionID string                     `json:"custom_quick_action_id,omitempty"`
	WebSearchEnabled    bool                       `json:"web_search_enabled,omitempty"`
	AssistantID         string                     `json:"assistant_id,omitempty"`
	UserID              string                     `json:"user_id,omitempty"`
}

// Input converts the tool arguments into an engine turn.
func (a InvokeArgs) Input() domain.Input {
	return domain.Input{
		Message:             a.Message,
		Next:                domain.Action(a.Next),
		Theme:               a.Theme,
		CodeAction:          a.CodeAction,
		HighlightedText:     a.HighlightedText,
		HighlightedCode:     a.HighlightedCode,
		CustomQuickActionID: a.CustomQuickActionID,
		WebSearchEnabled:    a.WebSearchEnabled,
		AssistantID:         a.AssistantID,
		UserID:              a.UserID,
	}
}

// TurnResult is the structured output of invoke_canvas.
type TurnResult struct {
	ThreadID  string           `json:"thread_id" jsonschema_description:"Thread to pass back on the next call"`
	RequestID string           `json:"request_id"`
	Path      []domain.Action  `json:"path" jsonschema_description:"Nodes visited during the turn"`
	Title     string           `json:"title,omitempty"`
	Reply     string           `json:"reply,omitempty" jsonschema_description:"Latest assistant message"`
	Artifact  *domain.Artifact `json:"artifact,omitempty"`
}

// ArtifactArgs are the arguments of the get_artifact tool.
type ArtifactArgs struct {
	ThreadID string `json:"thread_id"`
	Revision int    `json:"revision,omitempty"`
}

// ArtifactResult is one artifact revision.
type ArtifactResult struct {
	ThreadID  string                     `json:"thread_id"`
	Index     int                        `json:"index"`
	Revisions int                        `json:"revisions"`
	Type      domain.ContentKind         `json:"type"`
	Title     string                     `json:"title"`
	Language  domain.ProgrammingLanguage `json:"language,omitempty"`
	Body      string                     `json:"body"`
}

// Server wraps the canvas Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine:    engine,
		logger:    logger,
		mcpServer: server.NewMCPServer("canvas-mcp", strings.TrimSpace(canvas.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when
// ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	invokeTool := mcp.NewTool("invoke_canvas",
		mcp.WithDescription("Run one conversational turn. Generates, rewrites or answers about the thread's artifact."),
		mcp.WithString("thread_id", mcp.Description("Thread to continue. A new thread is started when empty.")),
		mcp.WithString("message", mcp.Description("User message for this turn")),
		mcp.WithString("next", mcp.Description("Force a route, e.g. rewriteArtifactTheme, bypassing the router")),
		mcp.WithObject("theme", mcp.Description("Theme rewrite selector: language, readingLevel, artifactLength or regenerateWithEmojis")),
		mcp.WithObject("code_action", mcp.Description("Code rewrite selector: addComments, addLogs, fixBugs or portLanguage")),
		mcp.WithObject("highlighted_text", mcp.Description("Markdown selection: fullMarkdown, markdownBlock, selectedText")),
		mcp.WithObject("highlighted_code", mcp.Description("Code selection: startCharIndex, endCharIndex")),
		mcp.WithString("custom_quick_action_id", mcp.Description("Stored quick action to apply")),
		mcp.WithBoolean("web_search_enabled", mcp.Description("Search the web before answering")),
		mcp.WithString("assistant_id", mcp.Description("Memory scope for reflections")),
		mcp.WithString("user_id", mcp.Description("Owner of custom quick actions")),
		mcp.WithOutputSchema[TurnResult](),
	)
	s.mcpServer.AddTool(invokeTool, mcp.NewStructuredToolHandler(s.handleInvoke))

	artifactTool := mcp.NewTool("get_artifact",
		mcp.WithDescription("Read the current, or a given, artifact revision of a thread."),
		mcp.WithString("thread_id", mcp.Required(), mcp.Description("Thread id")),
		mcp.WithNumber("revision", mcp.Description("1-based revision index. Defaults to the current one.")),
		mcp.WithOutputSchema[ArtifactResult](),
	)
	s.mcpServer.AddTool(artifactTool, mcp.NewStructuredToolHandler(s.handleGetArtifact))

	s.mcpServer.AddTool(mcp.NewTool("list_threads",
		mcp.WithDescription("List stored thread ids."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := s.engine.Threads(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(ids)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the conversation graph as a Mermaid diagram."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(s.engine.Describe()), nil
	})
}

func (s *Server) handleInvoke(ctx context.Context, _ mcp.CallToolRequest, args InvokeArgs) (TurnResult, error) {
	turn, err := s.engine.Run(ctx, args.ThreadID, args.Input())
	if err != nil {
		s.logger.Warn("MCP invoke_canvas failed", "thread_id", args.ThreadID, "error", err)
		return TurnResult{}, fmt.Errorf("invoke failed: %w", err)
	}
	return newTurnResult(turn), nil
}

func newTurnResult(turn *canvas.Turn) TurnResult {
	st := turn.State
	res := TurnResult{
		ThreadID:  st.ThreadID,
		RequestID: turn.RequestID,
		Path:      turn.Path,
		Title:     st.Title,
		Artifact:  st.Artifact,
	}
	for i := len(st.Messages) - 1; i >= 0; i-- {
		if st.Messages[i].Role == domain.RoleAI {
			res.Reply = st.Messages[i].Content
			break
		}
	}
	return res
}

func (s *Server) handleGetArtifact(ctx context.Context, _ mcp.CallToolRequest, args ArtifactArgs) (ArtifactResult, error) {
	if args.ThreadID == "" {
		return ArtifactResult{}, errors.New("thread_id is required")
	}
	st, err := s.engine.Thread(ctx, args.ThreadID)
	if err != nil {
		return ArtifactResult{}, err
	}
	if st.Artifact.Len() == 0 {
		return ArtifactResult{}, domain.ErrNoArtifact
	}

	a := st.Artifact
	if args.Revision != 0 {
		if a, err = a.Select(args.Revision); err != nil {
			return ArtifactResult{}, err
		}
	}
	c := a.Current()
	res := ArtifactResult{
		ThreadID:  st.ThreadID,
		Index:     c.Header().Index,
		Revisions: a.Len(),
		Type:      c.Kind(),
		Title:     c.Header().Title,
		Body:      c.Body(),
	}
	if code, ok := c.(domain.CodeContent); ok {
		res.Language = code.Language
	}
	return res, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(graphURI, "Conversation graph",
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      graphURI,
				MIMEType: "text/plain",
				Text:     s.engine.Describe(),
			},
		}, nil
	})

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(threadURIPrefix+"{threadID}", "Thread state",
		mcp.WithTemplateMIMEType("application/json"),
	), s.readThread)
}

func (s *Server) readThread(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	threadID := strings.TrimPrefix(uri, threadURIPrefix)
	if threadID == "" || threadID == uri {
		return nil, fmt.Errorf("invalid thread uri %q", uri)
	}
	st, err := s.engine.Thread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	jsonBytes, err := json.Marshal(st)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
