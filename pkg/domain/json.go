package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// MarshalJSON encodes the leaf as a JSON primitive.
func (l Leaf) MarshalJSON() ([]byte, error) {
	switch l.typ {
	case LeafBool:
		return strconv.AppendBool(nil, l.b), nil
	case LeafInt:
		return strconv.AppendInt(nil, l.i, 10), nil
	case LeafFloat:
		if math.IsInf(l.f, 0) || math.IsNaN(l.f) {
			return nil, fmt.Errorf("%w: %v is not representable in JSON", ErrUnsupportedValue, l.f)
		}
		return []byte(formatFloat(l.f)), nil
	case LeafString:
		return json.Marshal(l.s)
	}
	return []byte("null"), nil
}

// MarshalJSON encodes the record as a JSON object in insertion order.
func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.fields[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON encodes the sequence as a JSON array.
func (s *Sequence) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, item := range s.items {
		if i > 0 {
			buf.WriteByte(',')
		}
		val, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// String renders the record as compact JSON.
func (r *Record) String() string { return compactString(r) }

// String renders the sequence as compact JSON.
func (s *Sequence) String() string { return compactString(s) }

func compactString(v Value) string {
	out, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<%s: %v>", v.Kind(), err)
	}
	return string(out)
}

// ParseJSON decodes a JSON document into a Value, preserving object key order
// and distinguishing integers from floats.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := readJSON(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level JSON value")
	}
	return v, nil
}

func readJSON(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			b := NewRecordBuilder(0)
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("expected object key, got %v", keyTok)
				}
				child, err := readJSON(dec)
				if err != nil {
					return nil, err
				}
				b.Set(key, child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return b.Build(), nil
		case '[':
			b := NewSequenceBuilder(0)
			for dec.More() {
				child, err := readJSON(dec)
				if err != nil {
					return nil, err
				}
				b.Append(child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return b.Build(), nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case json.Number:
		return FromNative(t)
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	}
	return nil, fmt.Errorf("unexpected JSON token %v", tok)
}
