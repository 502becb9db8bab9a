package compiler

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow"
)

// Render produces a switch-style listing of the plan's control flow for
// operators. The output is informational only and is never parsed.
func Render(plan *workflow.Plan) string {
	if plan.IsEmpty() {
		return "// empty workflow: add nodes to generate a plan\n"
	}

	var sb strings.Builder
	sb.WriteString("func runWorkflow(ctx *ExecutionContext) {\n")
	fmt.Fprintf(&sb, "\tcurrent := %q\n", plan.EntryNodeID)
	sb.WriteString("\tfor current != \"\" {\n")
	sb.WriteString("\t\tswitch current {\n")

	for _, id := range orderedIDs(plan) {
		n := plan.Nodes[id]
		fmt.Fprintf(&sb, "\t\tcase %q: // %s\n", n.ID, n.Type)
		if len(n.Config) > 0 {
			cfg, _ := json.Marshal(n.Config)
			fmt.Fprintf(&sb, "\t\t\t// config: %s\n", cfg)
		}
		fmt.Fprintf(&sb, "\t\t\texecuteNode(%q, ctx)\n", n.Type)
		sb.WriteString(renderNext(n))
	}

	sb.WriteString("\t\tdefault:\n\t\t\treturn\n")
	sb.WriteString("\t\t}\n\t}\n}\n")
	return sb.String()
}

func renderNext(n *workflow.CompiledNode) string {
	if n.HasRoutes() && len(n.Routes) > 0 {
		var sb strings.Builder
		for i, r := range n.Routes {
			kw := "if"
			if i > 0 {
				kw = "} else if"
			}
			fmt.Fprintf(&sb, "\t\t\t%s evaluate(%q, ctx) {\n\t\t\t\tcurrent = %q\n", kw, r.Condition, r.TargetID)
		}
		sb.WriteString("\t\t\t} else {\n\t\t\t\tcurrent = \"\"\n\t\t\t}\n")
		return sb.String()
	}
	if len(n.Next) > 0 && !n.HasRoutes() {
		return fmt.Sprintf("\t\t\tcurrent = %q\n", n.Next[0])
	}
	return "\t\t\tcurrent = \"\"\n"
}

// orderedIDs returns the entry node first, then the rest in lexical order so
// the listing is stable across map iteration.
func orderedIDs(plan *workflow.Plan) []string {
	ids := make([]string, 0, len(plan.Nodes))
	for id := range plan.Nodes {
		if id != plan.EntryNodeID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if _, ok := plan.Nodes[plan.EntryNodeID]; ok {
		ids = append([]string{plan.EntryNodeID}, ids...)
	}
	return ids
}
