package runtime

import (
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/condition"
)

// MatchRoute evaluates routes in order and returns the first whose condition
// holds in env, with its index. Malformed conditions never match.
func MatchRoute(routes []workflow.Route, env condition.Env) (workflow.Route, int, bool) {
	for i, route := range routes {
		if condition.Evaluate(route.Condition, env) {
			return route, i, true
		}
	}
	return workflow.Route{}, -1, false
}

// resolveNext picks the node that follows node given the current context.
// An empty id means the run ends with the returned reason.
func resolveNext(node *workflow.CompiledNode, ec *ExecutionContext) (string, RouteReason, int) {
	if node.HasRoutes() {
		route, idx, ok := MatchRoute(node.Routes, ec)
		if !ok {
			return "", ReasonNoRouteMatched, -1
		}
		if route.TargetID == "" {
			return "", ReasonNodeMissing, idx
		}
		return route.TargetID, ReasonRouteMatched, idx
	}
	if len(node.Next) > 0 {
		return node.Next[0], ReasonNext, -1
	}
	return "", ReasonEndOfPlan, -1
}
