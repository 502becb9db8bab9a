package condition

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Env resolves identifiers to live values.
type Env interface {
	Lookup(ident string) (any, bool)
}

// MapEnv is an Env backed by a map.
type MapEnv map[string]any

// Lookup implements Env.
func (m MapEnv) Lookup(ident string) (any, bool) {
	v, ok := m[ident]
	return v, ok
}

// Eval evaluates a parsed expression. Unknown identifiers and values that
// cannot be coerced evaluate to false.
func Eval(e Expr, env Env) bool {
	switch n := e.(type) {
	case *Literal:
		return n.Value
	case *Comparison:
		return evalComparison(n, env)
	default:
		return false
	}
}

// Evaluate parses and evaluates expr with the default allowlist. Malformed
// expressions evaluate to false.
func Evaluate(expr string, env Env) bool {
	return defaultParser.Evaluate(expr, env)
}

// Evaluate parses and evaluates expr. Malformed expressions evaluate to false.
func (p *Parser) Evaluate(expr string, env Env) bool {
	e, err := p.Parse(expr)
	if err != nil {
		return false
	}
	return Eval(e, env)
}

func evalComparison(c *Comparison, env Env) bool {
	if env == nil {
		return false
	}
	actual, ok := env.Lookup(c.Ident)
	if !ok {
		return false
	}

	switch c.Op {
	case OpEqual:
		return stringify(actual) == c.Value.Text
	case OpGreaterThan, OpLessThan:
		if c.Value.Kind != ValueNumber {
			return false
		}
		n, ok := toNumber(actual)
		if !ok {
			return false
		}
		if c.Op == OpGreaterThan {
			return n > c.Value.Number
		}
		return n < c.Value.Number
	default:
		return false
	}
}

// stringify renders a context value the way it is compared for equality.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func toNumber(v any) (float64, bool) {
	var n float64
	switch val := v.(type) {
	case float64:
		n = val
	case float32:
		n = float64(val)
	case int:
		n = float64(val)
	case int64:
		n = float64(val)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) {
		return 0, false
	}
	return n, true
}
