package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/audit"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/persistence"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/compiler"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/runtime"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"config", NewConfigError("engine.max_steps", "must be positive"), ExitConfig},
		{"wrapped compile", NewCommandError("compile", &compiler.CompileError{Kind: compiler.KindCycleOrNoEntry}), ExitCompile},
		{"other", errors.New("boom"), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"", "table", "JSON", "markdown"} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q) error = %v", s, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("Expected error for xml")
	}
}

func testExecution() *persistence.Execution {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	finished := started.Add(12 * time.Millisecond)
	score := 0.42
	decision := "MANUAL_REVIEW"
	return &persistence.Execution{
		ID:              "exec-1",
		WorkflowID:      "onboarding",
		WorkflowVersion: 2,
		Status:          runtime.StatusDone,
		RiskScore:       &score,
		RiskLevel:       "MEDIUM",
		Decision:        &decision,
		RouteReason:     string(runtime.ReasonEndOfPlan),
		Steps:           5,
		StartedAt:       started,
		FinishedAt:      &finished,
	}
}

func TestFormatter_Execution(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter(FormatTable, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Execution(testExecution()); err != nil {
		t.Fatalf("Execution() error = %v", err)
	}
	for _, want := range []string{"exec-1", "onboarding (v2)", "0.4200", "MANUAL_REVIEW", "12ms"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("Expected output to contain %q:\n%s", want, buf.String())
		}
	}
}

func TestFormatter_ExecutionsJSON(t *testing.T) {
	var buf bytes.Buffer
	f, _ := NewFormatter(FormatJSON, &buf)
	if err := f.Executions([]*persistence.Execution{testExecution()}); err != nil {
		t.Fatal(err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0]["decision"] != "MANUAL_REVIEW" {
		t.Errorf("Unexpected JSON %v", decoded)
	}
}

func TestFormatter_EventsMarkdown(t *testing.T) {
	var buf bytes.Buffer
	f, _ := NewFormatter(FormatMarkdown, &buf)
	events := []*audit.Event{
		{Sequence: 1, Type: audit.EventRunEnd, Payload: map[string]any{"routeReason": "END_OF_PLAN", "steps": 3}},
	}
	if err := f.Events(events); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "|") {
		t.Errorf("Expected a Markdown table, got:\n%s", out)
	}
	if !strings.Contains(out, "routeReason=END_OF_PLAN steps=3") {
		t.Errorf("Expected flattened payload, got:\n%s", out)
	}
}

func TestFormatter_CompileWarnings(t *testing.T) {
	var buf bytes.Buffer
	f, _ := NewFormatter(FormatTable, &buf)
	res := &compiler.Result{
		Inspection: "plan\n",
		Warnings:   []compiler.Warning{{NodeID: "gate", Code: compiler.WarnUnparsableCondition, Message: "always false"}},
	}
	if err := f.Compile(res); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "plan\n") || !strings.Contains(buf.String(), compiler.WarnUnparsableCondition) {
		t.Errorf("Unexpected output:\n%s", buf.String())
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 4)
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func(i int) {
			p.Done(i%2 == 0)
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 4; i++ {
		<-done
	}
	p.Finish()

	finished, failed := p.Counts()
	if finished != 4 || failed != 2 {
		t.Errorf("Expected 4 done / 2 failed, got %d / %d", finished, failed)
	}
	if !strings.Contains(buf.String(), fmt.Sprintf("%d/%d runs", 4, 4)) {
		t.Errorf("Expected final progress line, got %q", buf.String())
	}
}
