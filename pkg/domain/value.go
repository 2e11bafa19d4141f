package domain

// Kind identifies the variant of a Value.
type Kind uint8

const (
	KindLeaf     Kind = iota // Primitive terminal (null, bool, number, string)
	KindRecord               // Ordered key -> Value mapping
	KindSequence             // Ordered list of Values
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindRecord:
		return "record"
	case KindSequence:
		return "sequence"
	default:
		return "unknown"
	}
}

// Value is a node of an immutable state tree.
// The set of implementations is closed: Leaf, *Record and *Sequence.
type Value interface {
	Kind() Kind
	isValue()
}

// IsContainer reports whether v is a Record or a Sequence.
func IsContainer(v Value) bool {
	if v == nil {
		return false
	}
	k := v.Kind()
	return k == KindRecord || k == KindSequence
}

// Same reports reference identity: containers are the same if they are the
// same allocation, leaves if they hold equal primitives.
func Same(a, b Value) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case Leaf:
		y, ok := b.(Leaf)
		return ok && x == y
	case *Record:
		y, ok := b.(*Record)
		return ok && x == y
	case *Sequence:
		y, ok := b.(*Sequence)
		return ok && x == y
	}
	return false
}

// Equal reports deep structural equality. Record key order is ignored.
func Equal(a, b Value) bool {
	if Same(a, b) {
		return true
	}
	switch x := a.(type) {
	case *Record:
		y, ok := b.(*Record)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for _, k := range x.keys {
			yv, ok := y.fields[k]
			if !ok || !Equal(x.fields[k], yv) {
				return false
			}
		}
		return true
	case *Sequence:
		y, ok := b.(*Sequence)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for i, item := range x.items {
			if !Equal(item, y.items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// ShallowEqual compares containers one level deep using Same on their
// direct children. Leaves and mismatched kinds fall back to Same.
func ShallowEqual(a, b Value) bool {
	if Same(a, b) {
		return true
	}
	switch x := a.(type) {
	case *Record:
		y, ok := b.(*Record)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for _, k := range x.keys {
			yv, ok := y.fields[k]
			if !ok || !Same(x.fields[k], yv) {
				return false
			}
		}
		return true
	case *Sequence:
		y, ok := b.(*Sequence)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for i, item := range x.items {
			if !Same(item, y.items[i]) {
				return false
			}
		}
		return true
	}
	return false
}
