package domain

import (
	"encoding/json"
	"strconv"
)

// ChangeOp is the kind of edit a Change describes.
type ChangeOp string

const (
	OpAdd     ChangeOp = "add"
	OpReplace ChangeOp = "replace"
	OpRemove  ChangeOp = "remove"
)

// Change is a single path-addressed edit between two snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type Change struct {
	Op    ChangeOp `json:"op"`
	Path  string   `json:"path"`
	Value Value    `json:"value,omitempty"`
}

// Diff calculates the edits that turn old into new.
// Subtrees shared by reference are skipped without being visited, so the cost
// is proportional to what changed rather than to the size of the tree.
// If old is nil, it returns a single replace of the root (initial load).
func Diff(old, new Value) []Change {
	if new == nil {
		return nil
	}
	if old == nil {
		return []Change{{Op: OpReplace, Path: "", Value: new}}
	}

	var changes []Change
	diffValue(&changes, nil, old, new)
	return changes
}

func diffValue(changes *[]Change, path Path, old, new Value) {
	if Same(old, new) {
		return
	}

	switch o := old.(type) {
	case *Record:
		if n, ok := new.(*Record); ok {
			diffRecord(changes, path, o, n)
			return
		}
	case *Sequence:
		if n, ok := new.(*Sequence); ok {
			diffSequence(changes, path, o, n)
			return
		}
	}

	*changes = append(*changes, Change{Op: OpReplace, Path: path.String(), Value: new})
}

func diffRecord(changes *[]Change, path Path, old, new *Record) {
	// Check for Deletions and Modifications
	old.Range(func(k string, ov Value) bool {
		nv, exists := new.Get(k)
		if !exists {
			*changes = append(*changes, Change{Op: OpRemove, Path: path.Append(k).String()})
			return true
		}
		diffValue(changes, path.Append(k), ov, nv)
		return true
	})

	// Check for Additions
	new.Range(func(k string, nv Value) bool {
		if !old.Has(k) {
			*changes = append(*changes, Change{Op: OpAdd, Path: path.Append(k).String(), Value: nv})
		}
		return true
	})
}

func diffSequence(changes *[]Change, path Path, old, new *Sequence) {
	common := min(old.Len(), new.Len())
	for i := 0; i < common; i++ {
		diffValue(changes, path.Append(strconv.Itoa(i)), old.items[i], new.items[i])
	}
	for i := common; i < new.Len(); i++ {
		*changes = append(*changes, Change{Op: OpAdd, Path: path.Append(strconv.Itoa(i)).String(), Value: new.items[i]})
	}
	// Removals run from the tail so the changes apply cleanly in order.
	for i := old.Len() - 1; i >= common; i-- {
		*changes = append(*changes, Change{Op: OpRemove, Path: path.Append(strconv.Itoa(i)).String()})
	}
}

// UnmarshalJSON decodes a change, parsing its value into the Value model.
func (c *Change) UnmarshalJSON(data []byte) error {
	var raw struct {
		Op    ChangeOp        `json:"op"`
		Path  string          `json:"path"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Op, c.Path, c.Value = raw.Op, raw.Path, nil
	if len(raw.Value) > 0 {
		v, err := ParseJSON(raw.Value)
		if err != nil {
			return err
		}
		c.Value = v
	}
	return nil
}
