package condition

import (
	"errors"
	"testing"
)

func TestParse_ValidExpressions(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{name: "literal true", expr: "true", want: "true"},
		{name: "string equality single quotes", expr: "riskLevel == 'HIGH'", want: "riskLevel == 'HIGH'"},
		{name: "string equality double quotes", expr: `riskLevel == "LOW"`, want: "riskLevel == 'LOW'"},
		{name: "greater than", expr: "riskScore > 0.7", want: "riskScore > 0.7"},
		{name: "less than no spaces", expr: "riskScore<0.3", want: "riskScore < 0.3"},
		{name: "numeric equality", expr: "riskScore == 1", want: "riskScore == 1"},
		{name: "negative number", expr: "riskScore > -1", want: "riskScore > -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Parse(tt.expr)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.expr, err)
			}
			if got := e.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse_RejectsMalformed(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"riskLevel = 'HIGH'",
		"riskLevel >= 0.5",
		"riskScore != 1",
		"riskLevel == 'HIGH",
		"riskLevel == HIGH",
		"riskScore > 'abc'",
		"decision == 'APPROVE'",
		"riskScore > 0.5 && riskLevel == 'HIGH'",
		"(riskScore > 0.5)",
		"riskScore >",
		"> 0.5",
		"riskScore > 0.5.1",
		"false",
		"TRUE",
	}

	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			_, err := Parse(expr)
			if err == nil {
				t.Fatalf("Parse(%q) expected error", expr)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Errorf("expected *ParseError, got %T", err)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	env := MapEnv{"riskScore": 0.75, "riskLevel": "HIGH"}

	tests := []struct {
		expr string
		want bool
	}{
		{"true", true},
		{"riskLevel == 'HIGH'", true},
		{"riskLevel == 'LOW'", false},
		{"riskScore > 0.7", true},
		{"riskScore > 0.75", false},
		{"riskScore < 0.8", true},
		{"riskScore < 0.75", false},
		{"riskScore == 0.75", true},
		{"riskScore == '0.75'", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			if got := Evaluate(tt.expr, env); got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluate_FailsClosed(t *testing.T) {
	env := MapEnv{"riskScore": "not-a-number", "riskLevel": "HIGH"}

	tests := []string{
		"riskScore > 0.5",
		"riskScore < 0.5",
		"riskLevel => 'HIGH'",
		"riskLevel == 'HIGH' || true",
		"process.exit()",
		"riskLevel === 'HIGH'",
		"1 == 1",
	}

	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			if Evaluate(expr, env) {
				t.Errorf("Evaluate(%q) = true, want false", expr)
			}
		})
	}

	if Evaluate("riskLevel == 'HIGH'", nil) {
		t.Error("nil env should evaluate to false")
	}
	if Evaluate("riskLevel == 'HIGH'", MapEnv{}) {
		t.Error("missing identifier should evaluate to false")
	}
}

func TestParser_CustomIdentifiers(t *testing.T) {
	p := NewParser("severity", "priority")

	if !p.Evaluate("severity == 'HIGH'", MapEnv{"severity": "HIGH"}) {
		t.Error("expected severity condition to match")
	}
	if !p.Evaluate("priority < 3", MapEnv{"priority": 2}) {
		t.Error("expected priority condition to match")
	}
	if p.Evaluate("riskLevel == 'HIGH'", MapEnv{"riskLevel": "HIGH"}) {
		t.Error("riskLevel is not in the custom allowlist")
	}
}

func TestEval_NumericCoercion(t *testing.T) {
	e, err := Parse("riskScore > 0.5")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cases := []struct {
		value any
		want  bool
	}{
		{0.9, true},
		{1, true},
		{int64(0), false},
		{"0.6", true},
		{" 0.6 ", true},
		{nil, false},
		{true, false},
	}
	for _, c := range cases {
		if got := Eval(e, MapEnv{"riskScore": c.value}); got != c.want {
			t.Errorf("riskScore=%v: got %v, want %v", c.value, got, c.want)
		}
	}
}
