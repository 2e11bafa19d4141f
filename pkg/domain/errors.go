package domain

import (
	"errors"
	"fmt"
)

// ErrStaleDraft is returned when a draft is used after its Produce call returned.
var ErrStaleDraft = errors.New("draft used after finalization")

// ErrForeignDraft is returned when a draft from one Produce call is written into another.
var ErrForeignDraft = errors.New("draft belongs to a different produce call")

// ErrCyclicDraft is returned when a draft is written beneath itself.
var ErrCyclicDraft = errors.New("draft cannot be nested inside itself")

// ErrUnsupportedValue is returned for Go values that cannot be represented in a state tree.
var ErrUnsupportedValue = errors.New("unsupported value")

// ErrNotRecord is returned when a record operation targets another kind.
var ErrNotRecord = errors.New("value is not a record")

// ErrNotSequence is returned when a sequence operation targets another kind.
var ErrNotSequence = errors.New("value is not a sequence")

// ErrNotContainer is returned when a nested draft is requested for a leaf.
var ErrNotContainer = errors.New("value is not a container")

// ErrKeyNotFound is returned when a record key does not exist.
var ErrKeyNotFound = errors.New("key not found")

// ErrIndexOutOfRange is returned when a sequence index is out of bounds.
var ErrIndexOutOfRange = errors.New("index out of range")

// ErrInvalidPath is returned when a path cannot be parsed or applied.
var ErrInvalidPath = errors.New("invalid path")

// ErrUnknownAction is returned when an action has no reducer.
var ErrUnknownAction = errors.New("unknown action")

// ErrSnapshotNotFound is returned when a slot ID cannot be found in the store.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// UnsupportedValueError reports the location and Go type of a value the
// engine refuses to carry into a state tree.
type UnsupportedValueError struct {
	Path string
	Type string
}

func (e *UnsupportedValueError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("unsupported value of type %s", e.Type)
	}
	return fmt.Sprintf("unsupported value of type %s at %q", e.Type, e.Path)
}

func (e *UnsupportedValueError) Unwrap() error { return ErrUnsupportedValue }

// UnknownActionError is returned by dispatchers for actions without a reducer.
type UnknownActionError struct {
	Action string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("action (%s) is not handled by any case in the reducer", e.Action)
}

func (e *UnknownActionError) Unwrap() error { return ErrUnknownAction }
