/*
Package canvas is a conversational artifact generation engine.

A thread holds a chat history and a versioned artifact: a markdown document
or a code page. Every user turn runs through a directed graph of model
calls. The graph decides whether to answer in chat, rewrite the artifact
(analysing requirements, synthesising a page description, then refining
candidates over several generate, evaluate and keep-the-best rounds), or
apply a targeted edit such as a theme, a code action, a highlighted
selection rewrite or a user defined quick action.

# Revisions

Artifact revisions are append-only. Every change adds exactly one revision
and moves the current index to it; failed turns persist nothing.

# Usage

	model, _ := llm.NewGemini(ctx, apiKey, "gemini-2.5-flash")
	engine, err := canvas.New(model, nil,
		canvas.WithThreadStore(file.New(".canvas/threads")),
		canvas.WithLogger(logger),
	)
	state, err := engine.Invoke(ctx, threadID, domain.Input{Message: "Build a SaaS pricing page"})

Collaborators (stores, search, audit, call logging) are ports defined in
pkg/ports. Surfaces live in pkg/adapters (HTTP, MCP) and cmd/canvas.
*/
package canvas
