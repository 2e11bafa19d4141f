package domain

import (
	"encoding"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Valuer is implemented by types that know how to present themselves as a Value.
type Valuer interface {
	ToValue() (Value, error)
}

var (
	closerType        = reflect.TypeOf((*io.Closer)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// FromNative converts a plain Go value into a Value.
//
// Maps with string keys become Records (keys sorted, since Go maps carry no
// order), slices and arrays become Sequences, structs become Records of their
// exported fields in declaration order, named by their json tags. Channels, functions, complex numbers,
// unsafe pointers and anything implementing io.Closer are rejected with an
// *UnsupportedValueError so resource handles never leak into a snapshot.
func FromNative(v any) (Value, error) {
	return fromNative("", v)
}

// MustFromNative is like FromNative but panics on error. Intended for
// literals in tests and examples.
func MustFromNative(v any) Value {
	out, err := FromNative(v)
	if err != nil {
		panic(err)
	}
	return out
}

func fromNative(path string, v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Leaf:
		return x, nil
	case *Record:
		if x == nil {
			return Null(), nil
		}
		return x, nil
	case *Sequence:
		if x == nil {
			return Null(), nil
		}
		return x, nil
	case Valuer:
		return x.ToValue()
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case int:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case float64:
		return Float(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: invalid number %q at %q", ErrUnsupportedValue, x, path)
		}
		return Float(f), nil
	case []byte:
		return String(string(x)), nil
	case map[string]any:
		return recordFromMap(path, x)
	case []any:
		b := NewSequenceBuilder(len(x))
		for i, item := range x {
			child, err := fromNative(joinPath(path, strconv.Itoa(i)), item)
			if err != nil {
				return nil, err
			}
			b.Append(child)
		}
		return b.Build(), nil
	}
	return fromReflect(path, reflect.ValueOf(v))
}

func fromReflect(path string, rv reflect.Value) (Value, error) {
	if rv.Type().Implements(closerType) {
		return nil, &UnsupportedValueError{Path: path, Type: rv.Type().String()}
	}
	if rv.Kind() != reflect.Pointer && rv.Type().Implements(textMarshalerType) {
		text, err := rv.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s at %q: %w", rv.Type(), path, err)
		}
		return String(string(text)), nil
	}

	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return Float(float64(u)), nil
		}
		return Int(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return fromNative(path, rv.Elem().Interface())
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, &UnsupportedValueError{Path: path, Type: rv.Type().String()}
		}
		if rv.IsNil() {
			return Null(), nil
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return recordFromMap(path, m)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Null(), nil
		}
		b := NewSequenceBuilder(rv.Len())
		for i := 0; i < rv.Len(); i++ {
			child, err := fromNative(joinPath(path, strconv.Itoa(i)), rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			b.Append(child)
		}
		return b.Build(), nil
	case reflect.Struct:
		b := NewRecordBuilder(rv.NumField())
		if err := structFields(path, rv, b); err != nil {
			return nil, err
		}
		return b.Build(), nil
	}
	return nil, &UnsupportedValueError{Path: path, Type: rv.Type().String()}
}

// structFields adds the exported fields of rv to b in declaration order,
// named after their json tags. Embedded structs without a tag are promoted.
// Every field value goes through fromNative so nested values get the same
// checks as top-level ones.
func structFields(path string, rv reflect.Value, b *RecordBuilder) error {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" && opts == "" {
			continue
		}
		fv := rv.Field(i)

		if f.Anonymous && name == "" {
			inner := fv
			if inner.Kind() == reflect.Pointer {
				if inner.IsNil() {
					continue
				}
				inner = inner.Elem()
			}
			if inner.Kind() == reflect.Struct && !inner.Type().Implements(textMarshalerType) {
				if err := structFields(path, inner, b); err != nil {
					return err
				}
				continue
			}
		}
		if !f.IsExported() {
			continue
		}

		if name == "" {
			name = f.Name
		}
		if hasTagOption(opts, "omitempty") && isEmptyValue(fv) {
			continue
		}
		child, err := fromNative(joinPath(path, name), fv.Interface())
		if err != nil {
			return err
		}
		b.Set(name, child)
	}
	return nil
}

func hasTagOption(opts, want string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == want {
			return true
		}
	}
	return false
}

// isEmptyValue follows encoding/json's notion of empty for omitempty.
func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Interface, reflect.Pointer:
		return v.IsZero()
	}
	return false
}

func recordFromMap(path string, m map[string]any) (*Record, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := NewRecordBuilder(len(keys))
	for _, k := range keys {
		child, err := fromNative(joinPath(path, k), m[k])
		if err != nil {
			return nil, err
		}
		b.Set(k, child)
	}
	return b.Build(), nil
}

// joinPath extends the rendered path base by seg, quoting seg like Path.String.
func joinPath(base, seg string) string {
	rendered := Path{seg}.String()
	if base == "" || strings.HasPrefix(rendered, "[") {
		return base + rendered
	}
	return base + "." + rendered
}

// ToNative converts a Value into plain Go values: map[string]any, []any,
// and nil/bool/int64/float64/string leaves.
func ToNative(v Value) any {
	switch x := v.(type) {
	case Leaf:
		return x.Interface()
	case *Record:
		m := make(map[string]any, x.Len())
		x.Range(func(k string, child Value) bool {
			m[k] = ToNative(child)
			return true
		})
		return m
	case *Sequence:
		out := make([]any, x.Len())
		x.Range(func(i int, child Value) bool {
			out[i] = ToNative(child)
			return true
		})
		return out
	}
	return nil
}

// Decode copies v into out (a pointer to a struct, map or slice) using
// mapstructure with json tag names and weak numeric conversion.
func Decode(v Value, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(ToNative(v))
}
