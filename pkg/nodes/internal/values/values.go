// Package values reads loosely typed node configuration and context data.
package values

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Decode overlays cfg onto out, which should already hold defaults. Keys
// absent from cfg leave the corresponding fields untouched.
func Decode(cfg map[string]any, out any) error {
	if len(cfg) == 0 {
		return nil
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode node config: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode node config: %w", err)
	}
	return nil
}

// Convert re-encodes v into out.
func Convert(v any, out any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Path walks nested maps along keys.
func Path(m map[string]any, keys ...string) (any, bool) {
	var cur any = m
	for _, k := range keys {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = node[k]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Map returns the map at keys, or nil.
func Map(m map[string]any, keys ...string) map[string]any {
	v, _ := Path(m, keys...)
	out, _ := v.(map[string]any)
	return out
}

// String returns the string at keys, or "".
func String(m map[string]any, keys ...string) string {
	v, _ := Path(m, keys...)
	s, _ := v.(string)
	return s
}

// IsTrue reports whether the value at keys is the boolean true.
func IsTrue(m map[string]any, keys ...string) bool {
	v, _ := Path(m, keys...)
	b, ok := v.(bool)
	return ok && b
}

// IsFalse reports whether the value at keys is the boolean false. Absent
// values are not false.
func IsFalse(m map[string]any, keys ...string) bool {
	v, _ := Path(m, keys...)
	b, ok := v.(bool)
	return ok && !b
}

// Number converts numeric values and numeric strings to float64.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// Count returns the number at keys, or the length of the list stored there.
func Count(m map[string]any, keys ...string) int {
	v, ok := Path(m, keys...)
	if !ok {
		return 0
	}
	if n, ok := Number(v); ok {
		return int(n)
	}
	switch list := v.(type) {
	case []any:
		return len(list)
	case []map[string]any:
		return len(list)
	}
	return 0
}
