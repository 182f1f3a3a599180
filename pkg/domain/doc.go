/*
Package domain contains the core domain models of the canvas engine.

It defines the conversation state carried through the graph, the versioned
artifact with its revision history, and the records exchanged with the model
(requirements, web DSL, evaluation). This package is kept pure and free of
external dependencies like I/O or persistence.

# Key Entities

  - ConversationState: the per-thread snapshot flowing through every node.
  - Update: the partial state a node returns; the runtime merges it.
  - Artifact: an append-only list of revisions with a current index.
  - ArtifactContent: a sealed sum of MarkdownContent and CodeContent.
  - Action: the identifier of a graph node selected by the router.
*/
package domain
