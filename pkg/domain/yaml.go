package domain

import (
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a YAML document into a Value, preserving mapping order.
// An empty document yields null.
func ParseYAML(data []byte) (Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	return FromYAMLNode(&doc)
}

// FromYAMLNode converts a decoded yaml.Node tree into a Value.
func FromYAMLNode(n *yaml.Node) (Value, error) {
	if n == nil {
		return Null(), nil
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null(), nil
		}
		return FromYAMLNode(n.Content[0])
	case yaml.AliasNode:
		return FromYAMLNode(n.Alias)
	case yaml.MappingNode:
		b := NewRecordBuilder(len(n.Content) / 2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]
			child, err := FromYAMLNode(valNode)
			if err != nil {
				return nil, err
			}
			b.Set(keyNode.Value, child)
		}
		return b.Build(), nil
	case yaml.SequenceNode:
		b := NewSequenceBuilder(len(n.Content))
		for _, item := range n.Content {
			child, err := FromYAMLNode(item)
			if err != nil {
				return nil, err
			}
			b.Append(child)
		}
		return b.Build(), nil
	case yaml.ScalarNode:
		var raw any
		if err := n.Decode(&raw); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return FromNative(raw)
	}
	return nil, fmt.Errorf("unsupported yaml node kind %d at line %d", n.Kind, n.Line)
}

// ToYAMLNode converts v into a yaml.Node tree suitable for yaml.Marshal.
func ToYAMLNode(v Value) *yaml.Node {
	switch x := v.(type) {
	case *Record:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		x.Range(func(k string, child Value) bool {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				ToYAMLNode(child),
			)
			return true
		})
		return n
	case *Sequence:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		x.Range(func(_ int, child Value) bool {
			n.Content = append(n.Content, ToYAMLNode(child))
			return true
		})
		return n
	case Leaf:
		return leafNode(x)
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

func leafNode(l Leaf) *yaml.Node {
	switch l.typ {
	case LeafBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(l.b)}
	case LeafInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(l.i, 10)}
	case LeafFloat:
		var text string
		switch {
		case math.IsNaN(l.f):
			text = ".nan"
		case math.IsInf(l.f, 1):
			text = ".inf"
		case math.IsInf(l.f, -1):
			text = "-.inf"
		default:
			text = formatFloat(l.f)
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: text}
	case LeafString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: l.s}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

// MarshalYAML implements yaml.Marshaler.
func (l Leaf) MarshalYAML() (any, error) { return leafNode(l), nil }

// MarshalYAML implements yaml.Marshaler, keeping key order.
func (r *Record) MarshalYAML() (any, error) { return ToYAMLNode(r), nil }

// MarshalYAML implements yaml.Marshaler.
func (s *Sequence) MarshalYAML() (any, error) { return ToYAMLNode(s), nil }

// EncodeYAML renders v as a YAML document.
func EncodeYAML(v Value) ([]byte, error) {
	return yaml.Marshal(ToYAMLNode(v))
}
