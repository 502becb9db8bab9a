package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Format is the serialization format of a graph or plan document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the document format from a file extension.
// Unknown extensions are treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// DecodeGraph parses a graph document. Nil node or edge lists are normalized
// to empty slices.
func DecodeGraph(data []byte, format Format) (*Graph, error) {
	var g Graph
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &g); err != nil {
			return nil, fmt.Errorf("failed to parse graph yaml: %w", err)
		}
	case FormatJSON, "":
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, fmt.Errorf("failed to parse graph json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported graph format %q", format)
	}

	if g.Nodes == nil {
		g.Nodes = []Node{}
	}
	if g.Edges == nil {
		g.Edges = []Edge{}
	}
	for i := range g.Nodes {
		g.Nodes[i].Config = normalizeMap(g.Nodes[i].Config)
	}

	return &g, nil
}

// LoadGraph reads and decodes a graph file.
func LoadGraph(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file %q: %w", path, err)
	}
	return DecodeGraph(data, FormatFromPath(path))
}

// DecodeInput parses an execution input document into a generic map.
func DecodeInput(data []byte, format Format) (map[string]any, error) {
	var in map[string]any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &in); err != nil {
			return nil, fmt.Errorf("failed to parse input yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &in); err != nil {
			return nil, fmt.Errorf("failed to parse input json: %w", err)
		}
	}
	if in == nil {
		in = map[string]any{}
	}
	return normalizeMap(in), nil
}

// normalizeMap converts YAML-decoded values into the JSON-shaped values the
// handlers expect: numbers become float64 and nested maps become
// map[string]any.
func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return normalizeMap(val)
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[fmt.Sprint(k)] = normalizeValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = normalizeValue(inner)
		}
		return out
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case uint64:
		return float64(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}
