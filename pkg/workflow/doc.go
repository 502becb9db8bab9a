// Package workflow defines the editable graph model of a compliance workflow
// and the compiled plan the runtime executes.
//
// # Graph
//
// A Graph is an ordered list of typed nodes and directed edges, as produced by
// the visual editor. Node positions are display-only. Graphs may be
// disconnected or cyclic; the compiler decides whether a graph is executable.
//
// # Plan
//
// A Plan is the deterministic, executable form of a Graph: one entry node and
// a map of compiled nodes, each with an ordered list of successors and, for
// risk gates, an ordered list of guarded routes.
//
// Graphs can be decoded from JSON or YAML:
//
//	g, err := workflow.DecodeGraph(data, workflow.FormatYAML)
//	res, err := compiler.Compile(g)
package workflow
