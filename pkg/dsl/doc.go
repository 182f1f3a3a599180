/*
Package dsl provides a fluent builder for conversation graphs.

A graph is a set of nodes, each doing its work through a NodeFunc that
returns a partial state update, and leaving through exactly one exit: an
unconditional edge (Go), a conditional edge with declared targets (Branch),
or the End sink. Build validates that every referenced target exists.

Example usage:

	b := dsl.New()

	b.Add("classify", classify).
		Branch(routeOnFlag, "search", dsl.End)

	b.Add("search", search).
		Go(dsl.End)

	graph, err := b.Start("classify").Build()
	// ... pass graph to runtime.NewExecutor(...)
*/
package dsl
