package draft

import (
	"fmt"

	"github.com/aretw0/sculpt/pkg/domain"
)

func (d *Draft) sequence() (*node, error) {
	n, err := d.node()
	if err != nil {
		return nil, err
	}
	if _, ok := n.base.(*domain.Sequence); !ok {
		return nil, fmt.Errorf("%w: draft holds a %s", domain.ErrNotSequence, n.base.Kind())
	}
	return n, nil
}

// slots returns the editable item list, copying it from base on first use.
func (n *node) slots() []slot {
	if n.items == nil {
		base := n.base.(*domain.Sequence)
		n.items = make([]slot, 0, base.Len()+1)
		base.Range(func(_ int, v domain.Value) bool {
			n.items = append(n.items, slot{value: v})
			return true
		})
	}
	return n.items
}

// At returns the current value at index i.
func (d *Draft) At(i int) (domain.Value, bool) {
	n, err := d.sequence()
	if err != nil {
		return nil, false
	}
	if n.items == nil {
		return n.base.(*domain.Sequence).At(i)
	}
	if i < 0 || i >= len(n.items) {
		return nil, false
	}
	v, err := n.items[i].current()
	if err != nil {
		return nil, false
	}
	return v, true
}

// ChildAt returns the draft for the container at index i.
func (d *Draft) ChildAt(i int) (*Draft, error) {
	n, err := d.sequence()
	if err != nil {
		return nil, err
	}
	items := n.slots()
	if i < 0 || i >= len(items) {
		return nil, fmt.Errorf("%w: %d (len %d)", domain.ErrIndexOutOfRange, i, len(items))
	}
	s := items[i]
	if s.draft != nil {
		return s.draft, nil
	}
	if !domain.IsContainer(s.value) {
		return nil, fmt.Errorf("%w: index %d holds a %s", domain.ErrNotContainer, i, s.value.Kind())
	}
	child := d.a.materialize(s.value, d.id)
	items[i] = slot{draft: child}
	return child, nil
}

// SetAt replaces the item at index i. Setting index Len() appends.
func (d *Draft) SetAt(i int, v any) error {
	n, err := d.sequence()
	if err != nil {
		return err
	}
	items := n.slots()
	if i < 0 || i > len(items) {
		return fmt.Errorf("%w: %d (len %d)", domain.ErrIndexOutOfRange, i, len(items))
	}
	s, err := d.a.toSlot(v, d.id)
	if err != nil {
		return fmt.Errorf("set [%d]: %w", i, err)
	}
	if i == len(items) {
		n.items = append(items, s)
	} else {
		items[i] = s
	}
	d.a.markDirty(d.id)
	return nil
}

// Append adds values at the end.
func (d *Draft) Append(vs ...any) error {
	n, err := d.sequence()
	if err != nil {
		return err
	}
	if len(vs) == 0 {
		return nil
	}
	items := n.slots()
	for _, v := range vs {
		s, err := d.a.toSlot(v, d.id)
		if err != nil {
			return fmt.Errorf("append [%d]: %w", len(items), err)
		}
		items = append(items, s)
	}
	n.items = items
	d.a.markDirty(d.id)
	return nil
}

// InsertAt inserts v before index i. Inserting at Len() appends.
func (d *Draft) InsertAt(i int, v any) error {
	n, err := d.sequence()
	if err != nil {
		return err
	}
	items := n.slots()
	if i < 0 || i > len(items) {
		return fmt.Errorf("%w: %d (len %d)", domain.ErrIndexOutOfRange, i, len(items))
	}
	s, err := d.a.toSlot(v, d.id)
	if err != nil {
		return fmt.Errorf("insert [%d]: %w", i, err)
	}
	items = append(items, slot{})
	copy(items[i+1:], items[i:])
	items[i] = s
	n.items = items
	d.a.markDirty(d.id)
	return nil
}

// RemoveAt deletes the item at index i, shifting later items down.
func (d *Draft) RemoveAt(i int) error {
	n, err := d.sequence()
	if err != nil {
		return err
	}
	items := n.slots()
	if i < 0 || i >= len(items) {
		return fmt.Errorf("%w: %d (len %d)", domain.ErrIndexOutOfRange, i, len(items))
	}
	n.items = append(items[:i], items[i+1:]...)
	d.a.markDirty(d.id)
	return nil
}
