package domain

// Field is a single key/value pair used to construct a Record.
type Field struct {
	Key   string
	Value Value
}

// Record is an immutable mapping of unique keys to Values.
// Insertion order is preserved so that encodings are deterministic.
type Record struct {
	keys   []string
	fields map[string]Value
}

// NewRecord builds a Record from fields. A repeated key keeps its first
// position and its last value. Nil values are stored as null leaves.
func NewRecord(fields ...Field) *Record {
	b := NewRecordBuilder(len(fields))
	for _, f := range fields {
		b.Set(f.Key, f.Value)
	}
	return b.Build()
}

func (*Record) Kind() Kind { return KindRecord }
func (*Record) isValue()   {}

// Len returns the number of keys.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Get returns the value stored at key.
func (r *Record) Get(key string) (Value, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.fields[key]
	return v, ok
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Keys returns the keys in insertion order. The slice is a copy.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Range calls fn for each entry in order until fn returns false.
func (r *Record) Range(fn func(key string, v Value) bool) {
	if r == nil {
		return
	}
	for _, k := range r.keys {
		if !fn(k, r.fields[k]) {
			return
		}
	}
}

// RecordBuilder accumulates fields for a new Record.
// A builder must not be used after Build.
type RecordBuilder struct {
	keys   []string
	fields map[string]Value
}

// NewRecordBuilder returns a builder sized for n fields.
func NewRecordBuilder(n int) *RecordBuilder {
	return &RecordBuilder{
		keys:   make([]string, 0, n),
		fields: make(map[string]Value, n),
	}
}

// Set adds or overwrites key.
func (b *RecordBuilder) Set(key string, v Value) *RecordBuilder {
	if v == nil {
		v = Null()
	}
	if _, exists := b.fields[key]; !exists {
		b.keys = append(b.keys, key)
	}
	b.fields[key] = v
	return b
}

// Build returns the Record and hands ownership of the storage to it.
func (b *RecordBuilder) Build() *Record {
	r := &Record{keys: b.keys, fields: b.fields}
	b.keys, b.fields = nil, nil
	return r
}
