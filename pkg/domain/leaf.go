package domain

import (
	"math"
	"strconv"
)

// LeafType identifies the primitive stored in a Leaf.
type LeafType uint8

const (
	LeafNull LeafType = iota
	LeafBool
	LeafInt
	LeafFloat
	LeafString
)

// Leaf is an immutable primitive value. The zero Leaf is null.
// Leaves are comparable with ==.
type Leaf struct {
	typ LeafType
	b   bool
	i   int64
	f   float64
	s   string
}

// Null returns the null leaf.
func Null() Leaf { return Leaf{} }

// Bool returns a boolean leaf.
func Bool(b bool) Leaf { return Leaf{typ: LeafBool, b: b} }

// Int returns an integer leaf.
func Int(i int64) Leaf { return Leaf{typ: LeafInt, i: i} }

// Float returns a floating-point leaf.
func Float(f float64) Leaf { return Leaf{typ: LeafFloat, f: f} }

// String returns a string leaf.
func String(s string) Leaf { return Leaf{typ: LeafString, s: s} }

func (Leaf) Kind() Kind { return KindLeaf }
func (Leaf) isValue()   {}

// Type returns the primitive type held by the leaf.
func (l Leaf) Type() LeafType { return l.typ }

// IsNull reports whether the leaf is null.
func (l Leaf) IsNull() bool { return l.typ == LeafNull }

// AsBool returns the boolean value and whether the leaf holds one.
func (l Leaf) AsBool() (bool, bool) { return l.b, l.typ == LeafBool }

// AsInt returns the integer value and whether the leaf holds one.
func (l Leaf) AsInt() (int64, bool) { return l.i, l.typ == LeafInt }

// AsFloat returns the value as float64. Integers are widened.
func (l Leaf) AsFloat() (float64, bool) {
	switch l.typ {
	case LeafFloat:
		return l.f, true
	case LeafInt:
		return float64(l.i), true
	}
	return 0, false
}

// AsString returns the string value and whether the leaf holds one.
func (l Leaf) AsString() (string, bool) { return l.s, l.typ == LeafString }

// Interface returns the leaf as a plain Go value (nil, bool, int64, float64 or string).
func (l Leaf) Interface() any {
	switch l.typ {
	case LeafBool:
		return l.b
	case LeafInt:
		return l.i
	case LeafFloat:
		return l.f
	case LeafString:
		return l.s
	}
	return nil
}

// String renders the leaf for display.
func (l Leaf) String() string {
	switch l.typ {
	case LeafBool:
		return strconv.FormatBool(l.b)
	case LeafInt:
		return strconv.FormatInt(l.i, 10)
	case LeafFloat:
		return formatFloat(l.f)
	case LeafString:
		return l.s
	}
	return "null"
}

// formatFloat keeps a fractional marker on whole numbers so that a float
// survives a round trip through text encodings as a float.
func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.', 'e', 'E':
			return s
		}
	}
	return s + ".0"
}
