package domain

// Sequence is an immutable ordered list of Values.
type Sequence struct {
	items []Value
}

// NewSequence builds a Sequence from items. The slice is copied and nil
// items are stored as null leaves.
func NewSequence(items ...Value) *Sequence {
	out := make([]Value, len(items))
	for i, v := range items {
		if v == nil {
			v = Null()
		}
		out[i] = v
	}
	return &Sequence{items: out}
}

// adoptSequence wraps items without copying. Callers must not retain items.
func adoptSequence(items []Value) *Sequence {
	return &Sequence{items: items}
}

func (*Sequence) Kind() Kind { return KindSequence }
func (*Sequence) isValue()   {}

// Len returns the number of items.
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// At returns the item at index i.
func (s *Sequence) At(i int) (Value, bool) {
	if s == nil || i < 0 || i >= len(s.items) {
		return nil, false
	}
	return s.items[i], true
}

// Items returns a copy of the items.
func (s *Sequence) Items() []Value {
	if s == nil {
		return nil
	}
	out := make([]Value, len(s.items))
	copy(out, s.items)
	return out
}

// Range calls fn for each item in order until fn returns false.
func (s *Sequence) Range(fn func(i int, v Value) bool) {
	if s == nil {
		return
	}
	for i, v := range s.items {
		if !fn(i, v) {
			return
		}
	}
}

// SequenceBuilder accumulates items for a new Sequence.
// A builder must not be used after Build.
type SequenceBuilder struct {
	items []Value
}

// NewSequenceBuilder returns a builder sized for n items.
func NewSequenceBuilder(n int) *SequenceBuilder {
	return &SequenceBuilder{items: make([]Value, 0, n)}
}

// Append adds v at the end.
func (b *SequenceBuilder) Append(v Value) *SequenceBuilder {
	if v == nil {
		v = Null()
	}
	b.items = append(b.items, v)
	return b
}

// Build returns the Sequence and hands ownership of the storage to it.
func (b *SequenceBuilder) Build() *Sequence {
	s := adoptSequence(b.items)
	b.items = nil
	return s
}
