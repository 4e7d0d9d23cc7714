package loader

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	"gamecfg/internal/data/value"
)

func parseYAML(data []byte) (value.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return value.Value{}, err
	}
	if doc.Kind == 0 {
		// Empty document.
		return value.Null(), nil
	}
	return decodeYAML(&doc, 0)
}

func decodeYAML(n *yaml.Node, depth int) (value.Value, error) {
	if depth > maxDepth {
		return value.Value{}, fmt.Errorf("line %d: document nested deeper than %d", n.Line, maxDepth)
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return value.Null(), nil
		}
		return decodeYAML(n.Content[0], depth+1)
	case yaml.AliasNode:
		return decodeYAML(n.Alias, depth+1)
	case yaml.ScalarNode:
		return decodeScalar(n)
	case yaml.SequenceNode:
		items := make([]value.Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := decodeYAML(c, depth+1)
			if err != nil {
				return value.Value{}, err
			}
			items = append(items, v)
		}
		return value.List(items...), nil
	case yaml.MappingNode:
		m := value.NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			kn, vn := n.Content[i], n.Content[i+1]
			if kn.Kind == yaml.ScalarNode && kn.ShortTag() == "!!merge" {
				if err := mergeInto(m, vn, depth+1); err != nil {
					return value.Value{}, err
				}
				continue
			}
			k, err := decodeYAML(kn, depth+1)
			if err != nil {
				return value.Value{}, err
			}
			v, err := decodeYAML(vn, depth+1)
			if err != nil {
				return value.Value{}, err
			}
			m.Set(k, v)
		}
		return value.Mapping(m), nil
	}
	return value.Value{}, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
}

// mergeInto applies a "<<" merge: merged keys never override explicit ones.
func mergeInto(dst *value.Map, n *yaml.Node, depth int) error {
	src, err := decodeYAML(n, depth)
	if err != nil {
		return err
	}
	var sources []value.Value
	if l, ok := src.AsList(); ok {
		sources = l
	} else {
		sources = []value.Value{src}
	}
	for _, s := range sources {
		sm, ok := s.AsMap()
		if !ok {
			return fmt.Errorf("line %d: merge value is not a mapping", n.Line)
		}
		for _, mem := range sm.Members() {
			if ks, isStr := mem.Key.AsString(); isStr {
				if _, exists := dst.Get(ks); exists {
					continue
				}
			}
			dst.Set(mem.Key, mem.Value)
		}
	}
	return nil
}

func decodeScalar(n *yaml.Node) (value.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return value.Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return value.Value{}, err
		}
		return value.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			// Out of int64 range; fall back to a float.
			return decodeFloat(n)
		}
		if isJSONNumber(n.Value) {
			return value.NumberLit(n.Value)
		}
		return value.Int(i), nil
	case "!!float":
		return decodeFloat(n)
	default:
		// Strings, timestamps, binary and custom tags keep their text.
		return value.String(n.Value), nil
	}
}

func decodeFloat(n *yaml.Node) (value.Value, error) {
	var f float64
	if err := n.Decode(&f); err != nil {
		return value.Value{}, err
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return value.Value{}, fmt.Errorf("line %d: non-finite number %s has no JSON form", n.Line, n.Value)
	}
	if isJSONNumber(n.Value) {
		return value.NumberLit(n.Value)
	}
	return value.Float(f), nil
}

func isJSONNumber(s string) bool {
	if s == "" || !json.Valid([]byte(s)) {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
