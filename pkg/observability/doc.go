/*
Package observability turns engine lifecycle events into Prometheus metrics
and structured log lines.

Both are exposed as domain.LifecycleHooks, so they compose with
domain.CombineHooks and plug into the executor, the model middleware and the
refinement loop alike.
*/
package observability
