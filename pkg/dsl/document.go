package dsl

import (
	"fmt"
	"os"
	"sort"

	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/aretw0/sculpt/pkg/ports"
	"github.com/aretw0/sculpt/pkg/store"
	"gopkg.in/yaml.v3"
)

// Document is a declarative store definition:
//
//	initial:
//	  todos: []
//	actions:
//	  add_todo:
//	    description: Append a todo
//	    ops:
//	      - {op: append, path: todos, value: $payload}
//	  clear:                       # short form: just the ops
//	    - {op: set, path: todos, value: []}
type Document struct {
	Initial domain.Value
	Actions []ports.ActionDefinition // sorted by name
}

type rawDocument struct {
	Initial yaml.Node            `yaml:"initial"`
	Actions map[string]yaml.Node `yaml:"actions"`
}

type rawAction struct {
	Description string           `yaml:"description"`
	Ops         []map[string]any `yaml:"ops"`
}

// Parse decodes a YAML (or JSON) document. Operations are validated.
func Parse(data []byte) (*Document, error) {
	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	doc := &Document{Initial: domain.NewRecord()}
	if raw.Initial.Kind != 0 {
		initial, err := domain.FromYAMLNode(&raw.Initial)
		if err != nil {
			return nil, fmt.Errorf("invalid initial state: %w", err)
		}
		doc.Initial = initial
	}

	for name, node := range raw.Actions {
		def := ports.ActionDefinition{Name: name}
		switch node.Kind {
		case yaml.SequenceNode:
			if err := node.Decode(&def.Ops); err != nil {
				return nil, fmt.Errorf("action %q: %w", name, err)
			}
		case yaml.MappingNode:
			var ra rawAction
			if err := node.Decode(&ra); err != nil {
				return nil, fmt.Errorf("action %q: %w", name, err)
			}
			def.Description, def.Ops = ra.Description, ra.Ops
		default:
			return nil, fmt.Errorf("action %q: expected a list of ops or a mapping", name)
		}
		for i, op := range def.Ops {
			if _, err := DecodeOp(op); err != nil {
				return nil, fmt.Errorf("action %q op %d: %w", name, i, err)
			}
		}
		doc.Actions = append(doc.Actions, def)
	}
	sort.Slice(doc.Actions, func(i, j int) bool { return doc.Actions[i].Name < doc.Actions[j].Name })
	return doc, nil
}

// LoadFile reads and parses a document from disk.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// Reducers compiles the document's actions.
func (d *Document) Reducers() (store.Reducers, error) {
	return Compile(d.Actions...)
}

// Store builds an in-process store from the document.
func (d *Document) Store(opts ...store.Option) (*store.Store, error) {
	reducers, err := d.Reducers()
	if err != nil {
		return nil, err
	}
	return store.New(d.Initial, reducers, opts...), nil
}
