// Package compiler turns an editable workflow graph into an executable plan.
//
// Compilation is pure and deterministic: it performs no I/O and identical
// graphs always yield identical plans and inspection text.
//
// # Entry selection
//
// Roots are the nodes that are not the target of any edge. The entry node is
// the first root in original node order. A non-empty graph without roots
// fails with a CycleOrNoEntry error. An empty graph compiles to an empty plan.
//
// # Gate routes
//
// For gate nodes (RISK_GATE) the routes are read from node config, never from
// edges. Edges drawn to gate targets are visual only. Accepted config shapes:
//
//	routes:
//	  - condition: "riskLevel == 'HIGH'"   # or "if"
//	    targetNodeId: reject               # or "to"
//	defaultRoute: approve                  # optional, appended as a "true" route
package compiler
