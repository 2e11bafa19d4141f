package dsl

import (
	"context"
	"fmt"

	"github.com/aretw0/sculpt/pkg/draft"
	"github.com/aretw0/sculpt/pkg/ports"
	"github.com/aretw0/sculpt/pkg/store"
)

// Compile turns action definitions into reducers. Every operation is
// decoded and validated up front so a bad definition fails here rather
// than on first dispatch.
func Compile(defs ...ports.ActionDefinition) (store.Reducers, error) {
	reducers := make(store.Reducers, len(defs))
	for _, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("%w: action without a name", ErrInvalidOp)
		}
		if _, dup := reducers[def.Name]; dup {
			return nil, fmt.Errorf("duplicate action %q", def.Name)
		}
		ops := make([]Op, 0, len(def.Ops))
		for i, raw := range def.Ops {
			op, err := DecodeOp(raw)
			if err != nil {
				return nil, fmt.Errorf("action %q op %d: %w", def.Name, i, err)
			}
			ops = append(ops, op)
		}
		reducers[def.Name] = reducer(ops)
	}
	return reducers, nil
}

// CompileSource loads every definition from source and compiles it.
func CompileSource(ctx context.Context, source ports.ActionSource) (store.Reducers, error) {
	defs, err := source.ListActions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	return Compile(defs...)
}

func reducer(ops []Op) store.Reducer {
	return func(d *draft.Draft, a store.Action) error {
		e := &env{raw: a.Payload}
		for i, op := range ops {
			if err := op.apply(d, e); err != nil {
				return fmt.Errorf("%s op %d (%s %s): %w", a.Type, i, op.Op, op.Path, err)
			}
		}
		return nil
	}
}
