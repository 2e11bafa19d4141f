package dsl

import (
	"fmt"
	"sort"

	"github.com/aretw0/sculpt/pkg/adapters/memory"
	"github.com/aretw0/sculpt/pkg/ports"
	"github.com/aretw0/sculpt/pkg/store"
)

// Builder collects action definitions in Go code.
type Builder struct {
	actions map[string]*ActionBuilder
}

// New creates a new action builder.
func New() *Builder {
	return &Builder{
		actions: make(map[string]*ActionBuilder),
	}
}

// Action starts (or continues) the definition of a named action.
func (b *Builder) Action(name string) *ActionBuilder {
	if ab, ok := b.actions[name]; ok {
		return ab
	}
	ab := &ActionBuilder{def: ports.ActionDefinition{Name: name}}
	b.actions[name] = ab
	return ab
}

// Definitions returns the collected definitions sorted by name.
func (b *Builder) Definitions() []ports.ActionDefinition {
	defs := make([]ports.ActionDefinition, 0, len(b.actions))
	for _, ab := range b.actions {
		defs = append(defs, ab.def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Build compiles the definitions into a memory.Loader.
func (b *Builder) Build() (*memory.Loader, error) {
	defs := b.Definitions()
	if _, err := Compile(defs...); err != nil {
		return nil, err
	}
	loader, err := memory.NewLoader(defs...)
	if err != nil {
		return nil, fmt.Errorf("failed to build memory loader: %w", err)
	}
	return loader, nil
}

// Reducers compiles the definitions directly.
func (b *Builder) Reducers() (store.Reducers, error) {
	return Compile(b.Definitions()...)
}

// ActionBuilder provides a fluent API for one action.
type ActionBuilder struct {
	def ports.ActionDefinition
}

// Describe sets the human readable description.
func (a *ActionBuilder) Describe(text string) *ActionBuilder {
	a.def.Description = text
	return a
}

func (a *ActionBuilder) add(op Op) *ActionBuilder {
	a.def.Ops = append(a.def.Ops, op.Map())
	return a
}

// Set assigns value at path.
func (a *ActionBuilder) Set(path string, value any) *ActionBuilder {
	return a.add(Op{Op: OpSet, Path: path, Value: value})
}

// Delete removes the key or item at path.
func (a *ActionBuilder) Delete(path string) *ActionBuilder {
	return a.add(Op{Op: OpDelete, Path: path})
}

// Inc adds by to the number at path (missing counts as zero).
func (a *ActionBuilder) Inc(path string, by any) *ActionBuilder {
	return a.add(Op{Op: OpInc, Path: path, Value: by})
}

// Append adds value to the end of the sequence at path.
func (a *ActionBuilder) Append(path string, value any) *ActionBuilder {
	return a.add(Op{Op: OpAppend, Path: path, Value: value})
}

// Insert places value at index of the sequence at path.
func (a *ActionBuilder) Insert(path string, index, value any) *ActionBuilder {
	return a.add(Op{Op: OpInsert, Path: path, Index: index, Value: value})
}

// RemoveAt drops the item at index of the sequence at path.
func (a *ActionBuilder) RemoveAt(path string, index any) *ActionBuilder {
	return a.add(Op{Op: OpRemove, Path: path, Index: index})
}

// Remove drops the first item equal to value from the sequence at path.
func (a *ActionBuilder) Remove(path string, value any) *ActionBuilder {
	return a.add(Op{Op: OpRemove, Path: path, Value: value})
}

// Merge copies the fields of value into the record at path.
func (a *ActionBuilder) Merge(path string, value any) *ActionBuilder {
	return a.add(Op{Op: OpMerge, Path: path, Value: value})
}

// Build returns the underlying definition.
func (a *ActionBuilder) Build() ports.ActionDefinition {
	return a.def
}
