/*
Package ports defines the driven ports (interfaces) of the canvas engine.

These interfaces decouple the graph from external implementations, allowing
the engine to work with various model providers, storage backends and audit
sinks.

# Key Interfaces

  - ModelInvoker: blocking and streamed model calls, optionally structured.
  - MemoryStore: namespaced long-term memory (reflections, quick actions).
  - ThreadStore: persistence of conversation state per thread.
  - Searcher: web retrieval for the search subgraph.
  - AuditStore and CallLogger: best-effort observability sinks.
  - DistributedLocker: coordinates access to a thread across replicas.
*/
package ports
