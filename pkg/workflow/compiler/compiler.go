package compiler

import (
	"fmt"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/condition"
)

// Warning is a non-fatal finding about a compiled graph.
type Warning struct {
	NodeID  string `json:"nodeId"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	// WarnUnreachableSuccessors flags a linear node with more than one
	// outgoing edge; only the first is followed at runtime.
	WarnUnreachableSuccessors = "UNREACHABLE_SUCCESSORS"

	// WarnUnparsableCondition flags a gate route whose condition will always
	// evaluate to false.
	WarnUnparsableCondition = "UNPARSABLE_CONDITION"

	// WarnUnknownNodeType flags a node type outside the catalog. Such nodes
	// run as no-ops unless a handler is registered for them.
	WarnUnknownNodeType = "UNKNOWN_NODE_TYPE"

	// WarnUnknownRouteTarget flags a gate route pointing at a node that does
	// not exist; taking it ends the run.
	WarnUnknownRouteTarget = "UNKNOWN_ROUTE_TARGET"
)

// Result is the output of a successful compilation.
type Result struct {
	Plan       *workflow.Plan
	Inspection string
	Warnings   []Warning
}

// Compile compiles a graph into an executable plan plus inspection text.
func Compile(g *workflow.Graph) (*Result, error) {
	if g == nil || len(g.Nodes) == 0 {
		plan := &workflow.Plan{Nodes: map[string]*workflow.CompiledNode{}}
		return &Result{Plan: plan, Inspection: Render(plan)}, nil
	}

	// Index nodes, preserving order.
	nodesByID := make(map[string]*workflow.Node, len(g.Nodes))
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.ID == "" {
			return nil, malformed("", "", "node at index %d has an empty id", i)
		}
		if _, dup := nodesByID[n.ID]; dup {
			return nil, malformed(n.ID, "", "duplicate node id")
		}
		nodesByID[n.ID] = n
	}

	// Adjacency in edge-list order and the set of edge targets.
	edgesBySource := make(map[string][]workflow.Edge, len(g.Nodes))
	targets := make(map[string]bool, len(g.Edges))
	for _, e := range g.Edges {
		if _, ok := nodesByID[e.Source]; !ok {
			return nil, malformed("", e.ID, "source %q does not exist", e.Source)
		}
		if _, ok := nodesByID[e.Target]; !ok {
			return nil, malformed("", e.ID, "target %q does not exist", e.Target)
		}
		edgesBySource[e.Source] = append(edgesBySource[e.Source], e)
		targets[e.Target] = true
	}

	var entry string
	for _, n := range g.Nodes {
		if !targets[n.ID] {
			entry = n.ID
			break
		}
	}
	if entry == "" {
		return nil, &CompileError{
			Kind:    KindCycleOrNoEntry,
			Message: "cycle detected or no entry node found",
		}
	}

	plan := &workflow.Plan{
		EntryNodeID: entry,
		Nodes:       make(map[string]*workflow.CompiledNode, len(g.Nodes)),
	}
	var warnings []Warning

	for _, n := range g.Nodes {
		out := edgesBySource[n.ID]
		next := make([]string, 0, len(out))
		for _, e := range out {
			next = append(next, e.Target)
		}

		cn := &workflow.CompiledNode{
			ID:     n.ID,
			Type:   n.Type,
			Config: copyConfig(n.Config),
			Next:   next,
		}

		if !n.Type.IsKnown() {
			warnings = append(warnings, Warning{
				NodeID:  n.ID,
				Code:    WarnUnknownNodeType,
				Message: fmt.Sprintf("node type %q is not in the catalog", n.Type),
			})
		}

		if n.Type.IsGate() {
			routes, err := readRoutes(n.ID, n.Config)
			if err != nil {
				return nil, err
			}
			cn.Routes = routes
			warnings = append(warnings, checkRoutes(n.ID, routes, nodesByID)...)
		} else if len(next) > 1 {
			warnings = append(warnings, Warning{
				NodeID:  n.ID,
				Code:    WarnUnreachableSuccessors,
				Message: fmt.Sprintf("%d outgoing edges; only %q is followed", len(next), next[0]),
			})
		}

		plan.Nodes[n.ID] = cn
	}

	return &Result{
		Plan:       plan,
		Inspection: Render(plan),
		Warnings:   warnings,
	}, nil
}

// readRoutes extracts gate routes from node config. A gate with no routes
// key compiles to an empty (non-nil) route list so it never falls back to
// edges.
func readRoutes(nodeID string, cfg map[string]any) ([]workflow.Route, error) {
	routes := []workflow.Route{}

	if raw, ok := cfg["routes"]; ok && raw != nil {
		var list []any
		switch v := raw.(type) {
		case []any:
			list = v
		case []map[string]any:
			for _, m := range v {
				list = append(list, m)
			}
		default:
			return nil, malformed(nodeID, "", "routes must be a list, got %T", raw)
		}
		for i, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, malformed(nodeID, "", "route %d must be an object, got %T", i, item)
			}
			cond := firstString(m, "condition", "if")
			target := firstString(m, "targetNodeId", "to", "targetId")
			routes = append(routes, workflow.Route{Condition: cond, TargetID: target})
		}
	}

	if def, ok := cfg["defaultRoute"].(string); ok && def != "" {
		routes = append(routes, workflow.Route{Condition: "true", TargetID: def})
	}

	return routes, nil
}

func checkRoutes(nodeID string, routes []workflow.Route, nodes map[string]*workflow.Node) []Warning {
	var warnings []Warning
	for i, r := range routes {
		if _, err := condition.Parse(r.Condition); err != nil {
			warnings = append(warnings, Warning{
				NodeID:  nodeID,
				Code:    WarnUnparsableCondition,
				Message: fmt.Sprintf("route %d: %v", i, err),
			})
		}
		if _, ok := nodes[r.TargetID]; !ok {
			warnings = append(warnings, Warning{
				NodeID:  nodeID,
				Code:    WarnUnknownRouteTarget,
				Message: fmt.Sprintf("route %d targets unknown node %q", i, r.TargetID),
			})
		}
	}
	return warnings
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func copyConfig(cfg map[string]any) map[string]any {
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		out[k] = v
	}
	return out
}
