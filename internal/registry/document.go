package registry

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// omap is an insertion-ordered object decoded from a definition document.
// YAML is a superset of JSON, so both formats decode through the same
// node walk; Go maps would lose the declaration order that method and
// rule resolution depend on.
type omap struct {
	keys []string
	vals map[string]any
}

func newOmap() *omap {
	return &omap{vals: make(map[string]any)}
}

func (m *omap) set(key string, val any) {
	if _, exists := m.vals[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = val
}

func (m *omap) get(key string) (any, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// Keys returns keys in declaration order.
func (m *omap) Keys() []string {
	return m.keys
}

func (m *omap) len() int {
	return len(m.keys)
}

// decodeDocument parses a JSON or YAML document into an ordered object.
func decodeDocument(data []byte) (*omap, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	v, err := decodeNode(root.Content[0])
	if err != nil {
		return nil, err
	}
	m, ok := v.(*omap)
	if !ok {
		return nil, fmt.Errorf("definition document must be an object")
	}
	return m, nil
}

func decodeNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.MappingNode:
		m := newOmap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			var key string
			if err := n.Content[i].Decode(&key); err != nil {
				return nil, fmt.Errorf("line %d: object key: %w", n.Content[i].Line, err)
			}
			val, err := decodeNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.set(key, val)
		}
		return m, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := decodeNode(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: scalar: %w", n.Line, err)
		}
		return v, nil
	case yaml.AliasNode:
		return decodeNode(n.Alias)
	default:
		return nil, fmt.Errorf("line %d: unsupported node kind %d", n.Line, n.Kind)
	}
}

// plain converts an ordered decode result into ordinary Go values
// (map[string]any / []any / scalars) for payload-like subtrees where
// order does not matter.
func plain(v any) any {
	switch val := v.(type) {
	case *omap:
		out := make(map[string]any, val.len())
		for _, k := range val.Keys() {
			out[k] = plain(val.vals[k])
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = plain(elem)
		}
		return out
	default:
		return v
	}
}

// Conversion helpers. Documents arrive with YAML/JSON scalar typing;
// these coerce the handful of shapes the normalizer accepts.

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asStringSlice(v any) ([]string, bool) {
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, elem := range raw {
		s, ok := elem.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

func asOmap(v any) (*omap, bool) {
	m, ok := v.(*omap)
	return m, ok
}

// asPlainMap lowers an ordered object to map[string]any.
func asPlainMap(v any) (map[string]any, bool) {
	m, ok := v.(*omap)
	if !ok {
		return nil, false
	}
	return plain(m).(map[string]any), true
}

// asStringMap lowers an ordered object to map[string]string, stringifying
// scalar values.
func asStringMap(v any) (map[string]string, bool) {
	m, ok := v.(*omap)
	if !ok {
		return nil, false
	}
	out := make(map[string]string, m.len())
	for _, k := range m.Keys() {
		out[k] = fmt.Sprintf("%v", m.vals[k])
	}
	return out, true
}
