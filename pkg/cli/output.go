package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/audit"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/persistence"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/compiler"
)

// OutputFormat selects how command results are rendered.
type OutputFormat string

const (
	// FormatTable renders fixed-width terminal tables (default).
	FormatTable OutputFormat = "table"
	// FormatMarkdown renders GitHub-flavoured Markdown tables.
	FormatMarkdown OutputFormat = "markdown"
	// FormatJSON renders indented JSON.
	FormatJSON OutputFormat = "json"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case "", FormatTable:
		return FormatTable, nil
	case FormatMarkdown, FormatJSON:
		return f, nil
	default:
		return "", NewConfigError("output", fmt.Sprintf("unsupported format %q (table, markdown, json)", s))
	}
}

// Formatter writes command results to w.
type Formatter struct {
	format OutputFormat
	w      io.Writer
}

// NewFormatter creates a formatter for the named format.
func NewFormatter(format OutputFormat, w io.Writer) (*Formatter, error) {
	f, err := ParseFormat(string(format))
	if err != nil {
		return nil, err
	}
	return &Formatter{format: f, w: w}, nil
}

// Compile writes a compilation result: the inspection text followed by
// any warnings.
func (f *Formatter) Compile(res *compiler.Result) error {
	if f.format == FormatJSON {
		return f.json(struct {
			Plan       any                `json:"plan"`
			Inspection string             `json:"inspection"`
			Warnings   []compiler.Warning `json:"warnings"`
		}{res.Plan, res.Inspection, res.Warnings})
	}

	if _, err := io.WriteString(f.w, res.Inspection); err != nil {
		return err
	}
	if len(res.Warnings) == 0 {
		return nil
	}
	t := f.table()
	t.AppendHeader(table.Row{"Node", "Warning", "Message"})
	for _, w := range res.Warnings {
		t.AppendRow(table.Row{w.NodeID, w.Code, w.Message})
	}
	return f.render(t)
}

// Execution writes one execution summary.
func (f *Formatter) Execution(e *persistence.Execution) error {
	if f.format == FormatJSON {
		return f.json(e)
	}
	t := f.table()
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRow(table.Row{"Execution", e.ID})
	t.AppendRow(table.Row{"Workflow", fmt.Sprintf("%s (v%d)", e.WorkflowID, e.WorkflowVersion)})
	t.AppendRow(table.Row{"Status", e.Status})
	t.AppendRow(table.Row{"Route reason", e.RouteReason})
	t.AppendRow(table.Row{"Steps", e.Steps})
	t.AppendRow(table.Row{"Risk score", score(e.RiskScore)})
	t.AppendRow(table.Row{"Risk level", e.RiskLevel})
	t.AppendRow(table.Row{"Decision", deref(e.Decision)})
	if e.Error != "" {
		t.AppendRow(table.Row{"Error", e.Error})
	}
	t.AppendRow(table.Row{"Duration", duration(e.StartedAt, e.FinishedAt)})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 80}})
	return f.render(t)
}

// Executions writes one row per execution.
func (f *Formatter) Executions(execs []*persistence.Execution) error {
	if f.format == FormatJSON {
		return f.json(execs)
	}
	t := f.table()
	t.AppendHeader(table.Row{"Execution", "Status", "Steps", "Score", "Level", "Decision"})
	counts := map[string]int{}
	for _, e := range execs {
		t.AppendRow(table.Row{e.ID, e.Status, e.Steps, score(e.RiskScore), e.RiskLevel, deref(e.Decision)})
		counts[string(e.Status)]++
	}
	t.AppendFooter(table.Row{"Total", summarize(counts), len(execs)})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	return f.render(t)
}

// Events writes an audit trail.
func (f *Formatter) Events(events []*audit.Event) error {
	if f.format == FormatJSON {
		return f.json(events)
	}
	t := f.table()
	t.AppendHeader(table.Row{"#", "Time", "Type", "Node", "Node type", "Detail"})
	for _, e := range events {
		t.AppendRow(table.Row{
			e.Sequence,
			e.Timestamp.UTC().Format(time.RFC3339Nano),
			e.Type,
			e.NodeID,
			e.NodeType,
			detail(e.Payload),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 6, WidthMax: 60},
	})
	return f.render(t)
}

// Workflows writes one row per stored workflow.
func (f *Formatter) Workflows(workflows []*persistence.Workflow) error {
	if f.format == FormatJSON {
		return f.json(workflows)
	}
	t := f.table()
	t.AppendHeader(table.Row{"Workflow", "Name", "Version", "Status", "Nodes"})
	for _, w := range workflows {
		nodes := 0
		if w.Graph != nil {
			nodes = len(w.Graph.Nodes)
		}
		t.AppendRow(table.Row{w.ID, w.Name, w.Version, w.Status, nodes})
	}
	return f.render(t)
}

func (f *Formatter) table() table.Writer {
	t := table.NewWriter()
	if f.format == FormatTable {
		t.SetStyle(table.StyleLight)
	}
	return t
}

func (f *Formatter) render(t table.Writer) error {
	var out string
	if f.format == FormatMarkdown {
		out = t.RenderMarkdown()
	} else {
		out = t.Render()
	}
	_, err := fmt.Fprintln(f.w, out)
	return err
}

func (f *Formatter) json(v any) error {
	enc := json.NewEncoder(f.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func score(s *float64) string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *s)
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func duration(start time.Time, end *time.Time) string {
	if end == nil {
		return "-"
	}
	return end.Sub(start).Round(time.Microsecond).String()
}

func summarize(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}

// detail flattens the top-level payload keys into key=value pairs.
func detail(payload map[string]any) string {
	if len(payload) == 0 {
		return ""
	}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := payload[k]
		switch v.(type) {
		case map[string]any, []any:
			raw, _ := json.Marshal(v)
			parts = append(parts, fmt.Sprintf("%s=%s", k, raw))
		default:
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
	}
	return strings.Join(parts, " ")
}
