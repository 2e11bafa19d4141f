package draft

import (
	"github.com/aretw0/sculpt/pkg/domain"
)

// arena owns every draft node created during one produce call.
// Nodes are addressed by their index; parent links are indices as well.
type arena struct {
	nodes   []*node
	revoked bool
}

// node is the mutable shadow of one container in the base tree.
type node struct {
	base   domain.Value
	parent int // -1 for the root
	dirty  bool

	// Record state. fields holds both written values and cached child drafts
	// for a key; added lists keys absent from base in insertion order.
	fields map[string]slot
	added  []string

	// Sequence state, copied from base on first write or child access.
	items []slot

	handle *Draft
}

// slot is one position in a draft: either a plain value, a draft, or a
// tombstone for a deleted record key.
type slot struct {
	value   domain.Value
	draft   *Draft
	deleted bool
}

func (a *arena) materialize(base domain.Value, parent int) *Draft {
	n := &node{base: base, parent: parent}
	a.nodes = append(a.nodes, n)
	n.handle = &Draft{a: a, id: len(a.nodes) - 1}
	return n.handle
}

// markDirty flags id and its ancestors. Propagation stops at the first node
// that is already dirty, since everything above it is dirty too.
func (a *arena) markDirty(id int) {
	for id >= 0 {
		n := a.nodes[id]
		if n.dirty {
			return
		}
		n.dirty = true
		id = n.parent
	}
}

func (a *arena) revoke() {
	a.revoked = true
}

// encloses reports whether outer is holder or one of its ancestors.
func (a *arena) encloses(outer, holder int) bool {
	for id := holder; id >= 0; id = a.nodes[id].parent {
		if id == outer {
			return true
		}
	}
	return false
}

// toSlot converts an incoming write into slot form. Drafts of the same call
// are kept as drafts so they finalize once and are shared.
func (a *arena) toSlot(v any, holder int) (slot, error) {
	if d, ok := v.(*Draft); ok && d != nil {
		switch {
		case d.a == nil || d.a.revoked:
			return slot{}, domain.ErrStaleDraft
		case d.a != a:
			return slot{}, domain.ErrForeignDraft
		case a.encloses(d.id, holder):
			return slot{}, domain.ErrCyclicDraft
		}
		return slot{draft: d}, nil
	}

	val, err := domain.FromNative(v)
	if err != nil {
		return slot{}, err
	}
	return slot{value: val}, nil
}

// current resolves a slot to the immutable value it holds right now.
func (s slot) current() (domain.Value, error) {
	if s.draft != nil {
		return s.draft.Current()
	}
	return s.value, nil
}
