package draft

import (
	"github.com/aretw0/sculpt/pkg/domain"
)

// finalizer turns drafts into immutable values. Results are memoized per
// node so a draft reachable from several places becomes one allocation.
type finalizer struct {
	a        *arena
	memo     map[int]domain.Value
	visiting map[int]bool
}

func newFinalizer(a *arena) *finalizer {
	return &finalizer{
		a:        a,
		memo:     make(map[int]domain.Value),
		visiting: make(map[int]bool),
	}
}

func (f *finalizer) finalize(id int) (domain.Value, error) {
	n := f.a.nodes[id]
	if !n.dirty {
		return n.base, nil
	}
	if v, ok := f.memo[id]; ok {
		return v, nil
	}
	if f.visiting[id] {
		return nil, domain.ErrCyclicDraft
	}
	f.visiting[id] = true
	defer delete(f.visiting, id)

	var (
		out domain.Value
		err error
	)
	switch base := n.base.(type) {
	case *domain.Record:
		out, err = f.record(n, base)
	case *domain.Sequence:
		out, err = f.sequence(n, base)
	default:
		out = n.base
	}
	if err != nil {
		return nil, err
	}

	// A rebuild that only reassigned existing references collapses back
	// to the base.
	if domain.ShallowEqual(out, n.base) {
		out = n.base
	}
	f.memo[id] = out
	return out, nil
}

func (f *finalizer) resolve(s slot) (domain.Value, error) {
	if s.draft != nil {
		return f.finalize(s.draft.id)
	}
	return s.value, nil
}

func (f *finalizer) record(n *node, base *domain.Record) (domain.Value, error) {
	b := domain.NewRecordBuilder(base.Len() + len(n.added))
	var err error
	base.Range(func(k string, v domain.Value) bool {
		s, ok := n.fields[k]
		if !ok {
			b.Set(k, v)
			return true
		}
		if s.deleted {
			return true
		}
		var cur domain.Value
		if cur, err = f.resolve(s); err != nil {
			return false
		}
		b.Set(k, cur)
		return true
	})
	if err != nil {
		return nil, err
	}
	for _, k := range n.added {
		cur, err := f.resolve(n.fields[k])
		if err != nil {
			return nil, err
		}
		b.Set(k, cur)
	}
	return b.Build(), nil
}

func (f *finalizer) sequence(n *node, base *domain.Sequence) (domain.Value, error) {
	if n.items == nil {
		return base, nil
	}
	b := domain.NewSequenceBuilder(len(n.items))
	for _, s := range n.items {
		cur, err := f.resolve(s)
		if err != nil {
			return nil, err
		}
		b.Append(cur)
	}
	return b.Build(), nil
}
