package dsl

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/aretw0/sculpt/pkg/draft"
	"github.com/mitchellh/mapstructure"
)

// Operation names understood by the interpreter.
const (
	OpSet    = "set"
	OpDelete = "delete"
	OpInc    = "inc"
	OpAppend = "append"
	OpInsert = "insert"
	OpRemove = "remove"
	OpMerge  = "merge"
)

// PayloadRef is the value prefix that refers to the action payload.
const PayloadRef = "$payload"

var (
	// ErrInvalidOp is returned for malformed operations.
	ErrInvalidOp = errors.New("invalid operation")

	// ErrPayload is returned when an operation needs a payload field that is absent or unusable.
	ErrPayload = errors.New("payload mismatch")
)

// pathToken matches {payload} and {payload.a.b} inside paths.
var pathToken = regexp.MustCompile(`\{payload(?:\.([^{}]+))?\}`)

// Op is a single declarative edit. Value and Index may reference the
// payload; Path may embed {payload.x} tokens.
type Op struct {
	Op    string `mapstructure:"op" json:"op" yaml:"op"`
	Path  string `mapstructure:"path" json:"path" yaml:"path"`
	Value any    `mapstructure:"value" json:"value,omitempty" yaml:"value,omitempty"`
	Index any    `mapstructure:"index" json:"index,omitempty" yaml:"index,omitempty"`
}

// Map returns the raw form stored in ports.ActionDefinition.Ops.
func (o Op) Map() map[string]any {
	m := map[string]any{"op": o.Op, "path": o.Path}
	if o.Value != nil {
		m["value"] = o.Value
	}
	if o.Index != nil {
		m["index"] = o.Index
	}
	return m
}

// DecodeOp converts a raw operation map, rejecting unknown fields.
func DecodeOp(raw map[string]any) (Op, error) {
	var op Op
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &op,
		ErrorUnused: true,
	})
	if err != nil {
		return Op{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Op{}, fmt.Errorf("%w: %v", ErrInvalidOp, err)
	}
	if err := op.validate(); err != nil {
		return Op{}, err
	}
	return op, nil
}

func (o Op) validate() error {
	switch o.Op {
	case OpSet, OpAppend, OpMerge:
		if o.Value == nil {
			return fmt.Errorf("%w: %s requires a value", ErrInvalidOp, o.Op)
		}
	case OpInsert:
		if o.Value == nil || o.Index == nil {
			return fmt.Errorf("%w: insert requires a value and an index", ErrInvalidOp)
		}
	case OpRemove:
		if o.Value == nil && o.Index == nil {
			return fmt.Errorf("%w: remove requires a value or an index", ErrInvalidOp)
		}
	case OpDelete, OpInc:
	case "":
		return fmt.Errorf("%w: missing op", ErrInvalidOp)
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidOp, o.Op)
	}
	if o.Path == "" && o.Op != OpMerge {
		return fmt.Errorf("%w: %s requires a path", ErrInvalidOp, o.Op)
	}
	return nil
}

// env carries the payload of the action being reduced.
type env struct {
	raw     any
	payload domain.Value
	err     error
	loaded  bool
}

func (e *env) value() (domain.Value, error) {
	if !e.loaded {
		e.payload, e.err = domain.FromNative(e.raw)
		e.loaded = true
	}
	return e.payload, e.err
}

func (e *env) lookup(ref string) (domain.Value, error) {
	p, err := e.value()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayload, err)
	}
	path, err := domain.ParsePath(ref)
	if err != nil {
		return nil, err
	}
	v, ok := domain.Lookup(p, path)
	if !ok {
		return nil, fmt.Errorf("%w: payload has no %q", ErrPayload, ref)
	}
	return v, nil
}

// resolve replaces payload references inside v.
func (e *env) resolve(v any) (any, error) {
	switch x := v.(type) {
	case string:
		if x == PayloadRef {
			return e.lookup("")
		}
		if ref, ok := strings.CutPrefix(x, PayloadRef+"."); ok {
			return e.lookup(ref)
		}
		return x, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			r, err := e.resolve(item)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			r, err := e.resolve(item)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}
	return v, nil
}

// path resolves the {payload...} tokens of p. The template is parsed before
// substitution and each value fills the segment it sits in, so a value that
// contains dots or brackets is a literal key and cannot add segments.
func (e *env) path(p string) (string, error) {
	if !pathToken.MatchString(p) {
		return p, nil
	}

	var values []string
	var firstErr error
	template := pathToken.ReplaceAllStringFunc(p, func(tok string) string {
		ref := pathToken.FindStringSubmatch(tok)[1]
		v, err := e.lookup(ref)
		if err == nil {
			if leaf, ok := v.(domain.Leaf); ok && !leaf.IsNull() {
				values = append(values, leaf.String())
				return placeholder(len(values) - 1)
			}
			err = fmt.Errorf("%w: %s is not a scalar", ErrPayload, tok)
		}
		if firstErr == nil {
			firstErr = err
		}
		return ""
	})
	if firstErr != nil {
		return "", firstErr
	}

	parsed, err := domain.ParsePath(template)
	if err != nil {
		return "", err
	}
	for i, seg := range parsed {
		for j, val := range values {
			seg = strings.ReplaceAll(seg, placeholder(j), val)
		}
		parsed[i] = seg
	}
	return parsed.String(), nil
}

// placeholder marks the i-th substituted value inside a path template.
func placeholder(i int) string {
	return "\x00" + strconv.Itoa(i) + "\x00"
}

func (e *env) index(v any) (int, error) {
	r, err := e.resolve(v)
	if err != nil {
		return 0, err
	}
	val, err := domain.FromNative(r)
	if err != nil {
		return 0, err
	}
	if leaf, ok := val.(domain.Leaf); ok {
		if i, ok := leaf.AsInt(); ok {
			return int(i), nil
		}
		// JSON sources may hand integers over as floats.
		if f, ok := leaf.AsFloat(); ok && f == math.Trunc(f) {
			return int(f), nil
		}
	}
	return 0, fmt.Errorf("%w: index %v is not an integer", ErrInvalidOp, v)
}

// Apply runs the operation against d with the given action payload.
func (o Op) Apply(d *draft.Draft, payload any) error {
	return o.apply(d, &env{raw: payload})
}

func (o Op) apply(d *draft.Draft, e *env) error {
	path, err := e.path(o.Path)
	if err != nil {
		return err
	}

	switch o.Op {
	case OpSet:
		v, err := e.resolve(o.Value)
		if err != nil {
			return err
		}
		return d.SetIn(path, v)

	case OpDelete:
		return d.DeleteIn(path)

	case OpInc:
		return o.inc(d, e, path)

	case OpAppend:
		v, err := e.resolve(o.Value)
		if err != nil {
			return err
		}
		if _, ok := d.GetIn(path); !ok {
			return d.SetIn(path, []any{v})
		}
		seq, err := d.ChildIn(path)
		if err != nil {
			return err
		}
		return seq.Append(v)

	case OpInsert:
		v, err := e.resolve(o.Value)
		if err != nil {
			return err
		}
		i, err := e.index(o.Index)
		if err != nil {
			return err
		}
		seq, err := d.ChildIn(path)
		if err != nil {
			return err
		}
		return seq.InsertAt(i, v)

	case OpRemove:
		seq, err := d.ChildIn(path)
		if err != nil {
			return err
		}
		if o.Index != nil {
			i, err := e.index(o.Index)
			if err != nil {
				return err
			}
			return seq.RemoveAt(i)
		}
		return removeMatching(seq, e, o.Value)

	case OpMerge:
		v, err := e.resolve(o.Value)
		if err != nil {
			return err
		}
		patch, err := domain.FromNative(v)
		if err != nil {
			return err
		}
		rec, ok := patch.(*domain.Record)
		if !ok {
			return fmt.Errorf("%w: merge value must be a record", ErrInvalidOp)
		}
		if path != "" {
			if _, ok := d.GetIn(path); !ok {
				return d.SetIn(path, rec)
			}
		}
		target, err := d.ChildIn(path)
		if err != nil {
			return err
		}
		var setErr error
		rec.Range(func(k string, v domain.Value) bool {
			setErr = target.Set(k, v)
			return setErr == nil
		})
		return setErr
	}
	return fmt.Errorf("%w: unknown op %q", ErrInvalidOp, o.Op)
}

func (o Op) inc(d *draft.Draft, e *env, path string) error {
	by := domain.Value(domain.Int(1))
	if o.Value != nil {
		r, err := e.resolve(o.Value)
		if err != nil {
			return err
		}
		if by, err = domain.FromNative(r); err != nil {
			return err
		}
	}
	step, ok := by.(domain.Leaf)
	if !ok {
		return fmt.Errorf("%w: inc step must be a number", ErrInvalidOp)
	}

	cur := domain.Int(0)
	if v, ok := d.GetIn(path); ok {
		if cur, ok = v.(domain.Leaf); !ok {
			return fmt.Errorf("%w: %s is not a number", ErrInvalidOp, path)
		}
	}

	ci, cInt := cur.AsInt()
	si, sInt := step.AsInt()
	if cInt && sInt {
		return d.SetIn(path, ci+si)
	}
	cf, cNum := cur.AsFloat()
	sf, sNum := step.AsFloat()
	if !cNum || !sNum {
		return fmt.Errorf("%w: inc needs numbers at %s", ErrInvalidOp, path)
	}
	return d.SetIn(path, cf+sf)
}

func removeMatching(seq *draft.Draft, e *env, raw any) error {
	r, err := e.resolve(raw)
	if err != nil {
		return err
	}
	want, err := domain.FromNative(r)
	if err != nil {
		return err
	}
	for i := 0; i < seq.Len(); i++ {
		if item, ok := seq.At(i); ok && domain.Equal(item, want) {
			return seq.RemoveAt(i)
		}
	}
	return nil
}
