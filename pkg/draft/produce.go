package draft

import (
	"github.com/aretw0/sculpt/pkg/domain"
)

// Recipe edits a draft of the base value.
type Recipe func(d *Draft) error

// ReplaceRecipe edits a draft and may return a replacement. A nil return
// keeps the edited draft; returning the root draft itself does the same.
// Any other value, including a nested draft, replaces the result.
type ReplaceRecipe func(d *Draft) (any, error)

// Outcome describes a finished produce call.
type Outcome struct {
	Value    domain.Value
	Drafts   int  // draft nodes materialized during the call
	Replaced bool // the recipe returned a replacement
	Changed  bool // Value is not the base reference
}

// Produce runs recipe against a draft of base and returns the resulting
// immutable value. Untouched subtrees are shared with base by reference.
// If nothing changed, base itself is returned. base is never modified.
//
// If recipe returns an error, no result is computed and the error is
// returned unchanged.
func Produce(base domain.Value, recipe Recipe) (domain.Value, error) {
	out, err := Execute(base, func(d *Draft) (any, error) {
		return nil, recipe(d)
	})
	return out.Value, err
}

// ProduceWith is Produce for recipes that may return a replacement value.
// A replacement wins over any edits made to the draft.
func ProduceWith(base domain.Value, recipe ReplaceRecipe) (domain.Value, error) {
	out, err := Execute(base, recipe)
	return out.Value, err
}

// Execute is the primitive behind Produce and ProduceWith. It reports the
// full Outcome of the call.
//
// Every draft handed out during the call is revoked before Execute returns,
// including when recipe panics; later use fails with domain.ErrStaleDraft.
func Execute(base domain.Value, recipe ReplaceRecipe) (Outcome, error) {
	if base == nil {
		base = domain.Null()
	}

	a := &arena{}
	defer a.revoke()

	root := a.materialize(base, -1)
	ret, err := recipe(root)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Drafts: len(a.nodes)}
	f := newFinalizer(a)

	switch r := ret.(type) {
	case nil:
		out.Value, err = f.finalize(root.id)
	case *Draft:
		switch {
		case r == nil || r == root:
			out.Value, err = f.finalize(root.id)
		case r.a != a:
			if r.a == nil || r.a.revoked {
				err = domain.ErrStaleDraft
			} else {
				err = domain.ErrForeignDraft
			}
		default:
			out.Replaced = true
			out.Value, err = f.finalize(r.id)
		}
	default:
		out.Replaced = true
		out.Value, err = domain.FromNative(ret)
	}
	if err != nil {
		return Outcome{}, err
	}

	out.Changed = !domain.Same(base, out.Value)
	return out, nil
}
