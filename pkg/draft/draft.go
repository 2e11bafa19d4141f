package draft

import (
	"fmt"

	"github.com/aretw0/sculpt/pkg/domain"
)

// Draft is the writable view of one container during a produce call.
//
// Reads see the draft's own writes first and fall back to the base value.
// Writes never touch the base; they are recorded on the draft and turned
// into a new immutable value when the call finalizes. A Draft is only valid
// inside the recipe that received it and is not safe for concurrent use.
type Draft struct {
	a  *arena
	id int
}

func (d *Draft) node() (*node, error) {
	if d == nil || d.a == nil || d.a.revoked {
		return nil, domain.ErrStaleDraft
	}
	return d.a.nodes[d.id], nil
}

func (d *Draft) record() (*node, *domain.Record, error) {
	n, err := d.node()
	if err != nil {
		return nil, nil, err
	}
	r, ok := n.base.(*domain.Record)
	if !ok {
		return nil, nil, fmt.Errorf("%w: draft holds a %s", domain.ErrNotRecord, n.base.Kind())
	}
	return n, r, nil
}

// Kind returns the kind of the underlying value. Stale drafts report a leaf.
func (d *Draft) Kind() domain.Kind {
	n, err := d.node()
	if err != nil {
		return domain.KindLeaf
	}
	return n.base.Kind()
}

// Base returns the value this draft was created from.
func (d *Draft) Base() (domain.Value, error) {
	n, err := d.node()
	if err != nil {
		return nil, err
	}
	return n.base, nil
}

// Modified reports whether the draft or anything beneath it was written.
func (d *Draft) Modified() bool {
	n, err := d.node()
	return err == nil && n.dirty
}

// Current returns the present state of the draft as an immutable value
// without ending the call.
func (d *Draft) Current() (domain.Value, error) {
	if _, err := d.node(); err != nil {
		return nil, err
	}
	return newFinalizer(d.a).finalize(d.id)
}

// ToValue implements domain.Valuer so a draft can be passed wherever a
// native value is accepted.
func (d *Draft) ToValue() (domain.Value, error) {
	if d == nil {
		return domain.Null(), nil
	}
	return d.Current()
}

// Get returns the current value stored at key. Container values are
// returned as snapshots; use Child to edit them in place.
// A missing key, a non-record draft or a stale draft report false.
func (d *Draft) Get(key string) (domain.Value, bool) {
	n, base, err := d.record()
	if err != nil {
		return nil, false
	}
	if s, ok := n.fields[key]; ok {
		if s.deleted {
			return nil, false
		}
		v, err := s.current()
		if err != nil {
			return nil, false
		}
		return v, true
	}
	return base.Get(key)
}

// Leaf returns the leaf stored at key.
func (d *Draft) Leaf(key string) (domain.Leaf, bool) {
	v, ok := d.Get(key)
	if !ok {
		return domain.Leaf{}, false
	}
	l, ok := v.(domain.Leaf)
	return l, ok
}

// Has reports whether key is present.
func (d *Draft) Has(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// Keys returns the current keys: surviving base keys in base order followed
// by added keys in insertion order.
func (d *Draft) Keys() []string {
	n, base, err := d.record()
	if err != nil {
		return nil
	}
	keys := make([]string, 0, base.Len()+len(n.added))
	base.Range(func(k string, _ domain.Value) bool {
		if s, ok := n.fields[k]; !ok || !s.deleted {
			keys = append(keys, k)
		}
		return true
	})
	return append(keys, n.added...)
}

// Len returns the number of keys of a record or items of a sequence.
func (d *Draft) Len() int {
	n, err := d.node()
	if err != nil {
		return 0
	}
	switch b := n.base.(type) {
	case *domain.Record:
		return len(d.Keys())
	case *domain.Sequence:
		if n.items != nil {
			return len(n.items)
		}
		return b.Len()
	}
	return 0
}

// Child returns the draft for the container stored at key. Repeated calls
// return the same draft until the key is overwritten.
func (d *Draft) Child(key string) (*Draft, error) {
	n, base, err := d.record()
	if err != nil {
		return nil, err
	}

	s, ok := n.fields[key]
	if !ok {
		v, found := base.Get(key)
		if !found {
			return nil, fmt.Errorf("%w: %q", domain.ErrKeyNotFound, key)
		}
		s = slot{value: v}
	}
	if s.deleted {
		return nil, fmt.Errorf("%w: %q", domain.ErrKeyNotFound, key)
	}
	if s.draft != nil {
		return s.draft, nil
	}
	if !domain.IsContainer(s.value) {
		return nil, fmt.Errorf("%w: %q holds a %s", domain.ErrNotContainer, key, s.value.Kind())
	}

	child := d.a.materialize(s.value, d.id)
	if n.fields == nil {
		n.fields = make(map[string]slot)
	}
	n.fields[key] = slot{draft: child}
	return child, nil
}

// Set stores v at key, adding the key if needed. v may be a domain.Value,
// a *Draft from the same call, or a native Go value.
func (d *Draft) Set(key string, v any) error {
	n, base, err := d.record()
	if err != nil {
		return err
	}
	s, err := d.a.toSlot(v, d.id)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}

	if n.fields == nil {
		n.fields = make(map[string]slot)
	}
	_, known := n.fields[key]
	if !known && !base.Has(key) {
		n.added = append(n.added, key)
	}
	n.fields[key] = s
	d.a.markDirty(d.id)
	return nil
}

// Delete removes key. Deleting a missing key is a no-op.
func (d *Draft) Delete(key string) error {
	n, base, err := d.record()
	if err != nil {
		return err
	}

	if base.Has(key) {
		if s, ok := n.fields[key]; ok && s.deleted {
			return nil
		}
		if n.fields == nil {
			n.fields = make(map[string]slot)
		}
		n.fields[key] = slot{deleted: true}
		d.a.markDirty(d.id)
		return nil
	}

	if _, ok := n.fields[key]; !ok {
		return nil
	}
	delete(n.fields, key)
	for i, k := range n.added {
		if k == key {
			n.added = append(n.added[:i], n.added[i+1:]...)
			break
		}
	}
	d.a.markDirty(d.id)
	return nil
}
