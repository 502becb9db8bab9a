// Package runtime executes compiled workflow plans.
//
// An Interpreter walks a workflow.Plan from its entry node, invoking the
// Handler registered for each node type and merging the partial Update it
// returns into the run's ExecutionContext. Routes on a node are evaluated in
// declaration order with the condition package and the first true route wins.
// Nodes without routes follow their first successor.
//
// A run ends in one of three states:
//
//	DONE                  the plan ran out of nodes or no route matched
//	STEP_BUDGET_EXCEEDED  the safety ceiling on executed steps was reached
//	FAILED                a handler returned an error or panicked
//
// Every step is reported to an audit.Sink as NODE_START / NODE_END (or ERROR)
// events, followed by a single RUN_END event carrying the RouteReason that
// distinguishes the terminal states above.
package runtime
