// Package http exposes a canvas Engine as a JSON API with server-sent
// events for live thread updates.
package http

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/canvas"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed openapi.yaml
var rawSpec []byte

// Engine is the part of canvas.Engine the API serves.
type Engine interface {
	Run(ctx context.Context, threadID string, in domain.Input) (*canvas.Turn, error)
	Thread(ctx context.Context, threadID string) (*domain.ConversationState, error)
	Threads(ctx context.Context) ([]string, error)
	DeleteThread(ctx context.Context, threadID string) error
	SelectRevision(ctx context.Context, threadID string, index int) (*domain.ConversationState, error)
	Describe() string
}

// Server holds the handlers of the API.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	logger   *slog.Logger
	metrics  http.Handler
	spec     *openapi3.T
	markdown goldmark.Markdown
}

// Option configures the handler.
type Option func(*Server)

// WithStreams shares a StreamManager whose Hooks are already wired into the engine.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) { s.Streams = sm }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics mounts h under /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) (http.Handler, error) {
	server := &Server{
		Engine:   engine,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
	for _, opt := range opts {
		opt(server)
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	if server.Streams == nil {
		server.Streams = NewStreamManager(server.logger)
	}

	spec, err := LoadSpec()
	if err != nil {
		return nil, err
	}
	server.spec = spec
	validator, err := requestValidator(spec, server.writeError)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(validator)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/info", server.GetInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if server.metrics != nil {
		r.Handle("/metrics", server.metrics)
	}

	r.Get("/graph", server.GetGraph)
	r.Get("/threads", server.ListThreads)
	r.Route("/threads/{threadID}", func(r chi.Router) {
		r.Get("/", server.GetThread)
		r.Delete("/", server.DeleteThread)
		r.Post("/runs", server.RunTurn)
		r.Get("/artifact", server.GetArtifact)
		r.Put("/artifact/current", server.SelectRevision)
		r.Get("/events", server.SubscribeEvents)
	})

	return enableCORS(r), nil
}

// LoadSpec parses the embedded OpenAPI document.
func LoadSpec() (*openapi3.T, error) {
	doc, err := openapi3.NewLoader().LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	return doc, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Canvas API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version":     canvas.Version,
		"api_version": s.spec.Info.Version,
	})
}

// GetGraph handles GET /graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, s.Engine.Describe())
}

// ListThreads handles GET /threads.
func (s *Server) ListThreads(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.Threads(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

// GetThread handles GET /threads/{threadID}.
func (s *Server) GetThread(w http.ResponseWriter, r *http.Request) {
	state, err := s.Engine.Thread(r.Context(), chi.URLParam(r, "threadID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// DeleteThread handles DELETE /threads/{threadID}.
func (s *Server) DeleteThread(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.DeleteThread(r.Context(), chi.URLParam(r, "threadID")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type turnResponse struct {
	State     *domain.ConversationState `json:"state"`
	Path      []domain.Action           `json:"path"`
	RequestID string                    `json:"requestId"`
}

// RunTurn handles POST /threads/{threadID}/runs. The state diff of the turn
// is pushed to the thread's SSE listeners.
func (s *Server) RunTurn(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")

	var in domain.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	prev, err := s.Engine.Thread(r.Context(), threadID)
	if err != nil && !errors.Is(err, domain.ErrThreadNotFound) {
		s.fail(w, r, err)
		return
	}

	turn, err := s.Engine.Run(r.Context(), threadID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if diff := domain.Diff(prev, turn.State); diff != nil {
		s.Streams.Broadcast(threadID, EventDiff, diff)
	}

	writeJSON(w, http.StatusOK, turnResponse{
		State:     turn.State,
		Path:      turn.Path,
		RequestID: turn.RequestID,
	})
}

// GetArtifact handles GET /threads/{threadID}/artifact. The current revision
// is rendered as HTML when asked for with ?format=html or an Accept header.
func (s *Server) GetArtifact(w http.ResponseWriter, r *http.Request) {
	state, err := s.Engine.Thread(r.Context(), chi.URLParam(r, "threadID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if state.Artifact.Len() == 0 {
		s.writeError(w, r, http.StatusNotFound, domain.ErrNoArtifact)
		return
	}
	if !wantsHTML(r) {
		writeJSON(w, http.StatusOK, state.Artifact)
		return
	}

	page, err := s.renderHTML(state.Artifact.Current())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func wantsHTML(r *http.Request) bool {
	switch r.URL.Query().Get("format") {
	case "html":
		return true
	case "json":
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func (s *Server) renderHTML(c domain.ArtifactContent) ([]byte, error) {
	var body bytes.Buffer
	switch v := c.(type) {
	case domain.MarkdownContent:
		if err := s.markdown.Convert([]byte(v.FullMarkdown), &body); err != nil {
			return nil, fmt.Errorf("render markdown: %w", err)
		}
	case domain.CodeContent:
		fmt.Fprintf(&body, "<pre><code class=\"language-%s\">%s</code></pre>\n", v.Language, html.EscapeString(v.Code))
	default:
		return nil, domain.ErrNoArtifact
	}

	var page bytes.Buffer
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\" />\n<title>%s</title>\n</head>\n<body>\n",
		html.EscapeString(c.Header().Title))
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

type selectRequest struct {
	Index int `json:"index"`
}

// SelectRevision handles PUT /threads/{threadID}/artifact/current.
func (s *Server) SelectRevision(w http.ResponseWriter, r *http.Request) {
	var body selectRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	threadID := chi.URLParam(r, "threadID")
	state, err := s.Engine.SelectRevision(r.Context(), threadID, body.Index)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.Streams.Broadcast(threadID, EventDiff, &domain.StateDiff{ThreadID: threadID, Artifact: &domain.Artifact{CurrentIndex: state.Artifact.CurrentIndex}})
	writeJSON(w, http.StatusOK, state)
}

// SubscribeEvents handles GET /threads/{threadID}/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	threadID := chi.URLParam(r, "threadID")
	watch := parseWatch(r.URL.Query().Get("watch"))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Subscribing to thread updates", "thread_id", threadID)
	ch, cancel := s.Streams.Subscribe(threadID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "thread_id", threadID)
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if len(watch) > 0 && !watch[ev.Name] {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Data)
			flusher.Flush()
		}
	}
}

func parseWatch(raw string) map[string]bool {
	if raw == "" {
		return nil
	}
	out := make(map[string]bool)
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out[name] = true
		}
	}
	return out
}

// StatusFor maps engine errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrThreadNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrNoHumanMessage),
		errors.Is(err, domain.ErrNoArtifact),
		errors.Is(err, domain.ErrNoThemeSelected),
		errors.Is(err, domain.ErrNoCodeActionSelected),
		errors.Is(err, domain.ErrAmbiguousSelection),
		errors.Is(err, domain.ErrWrongContentKind),
		errors.Is(err, domain.ErrQuickActionNotFound),
		errors.Is(err, domain.ErrMissingUserID),
		errors.Is(err, domain.ErrMissingAssistantID),
		errors.Is(err, domain.ErrUnknownAction),
		errors.Is(err, domain.ErrNextNotSet),
		errors.Is(err, domain.ErrRevisionOutOfRange):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.writeError(w, r, StatusFor(err), err)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.logger.WarnContext(r.Context(), "request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}
