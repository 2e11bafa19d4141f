package draft

import (
	"fmt"

	"github.com/aretw0/sculpt/pkg/domain"
)

// Apply replays changes, as produced by domain.Diff, on top of base.
// Consecutive non-root changes run inside a single produce call so that
// untouched subtrees stay shared.
func Apply(base domain.Value, changes []domain.Change) (domain.Value, error) {
	cur := base
	for start := 0; start < len(changes); {
		if c := changes[start]; c.Path == "" {
			switch c.Op {
			case domain.OpRemove:
				cur = domain.Null()
			default:
				cur = c.Value
			}
			start++
			continue
		}

		end := start
		for end < len(changes) && changes[end].Path != "" {
			end++
		}
		batch := changes[start:end]
		next, err := Produce(cur, func(d *Draft) error {
			for _, c := range batch {
				if err := applyChange(d, c); err != nil {
					return fmt.Errorf("%s %s: %w", c.Op, c.Path, err)
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		cur, start = next, end
	}
	return cur, nil
}

func applyChange(d *Draft, c domain.Change) error {
	switch c.Op {
	case domain.OpAdd:
		parent, last, err := d.parentOf(c.Path)
		if err != nil {
			return err
		}
		if parent.Kind() == domain.KindSequence {
			i, err := domain.Index(last)
			if err != nil {
				return err
			}
			return parent.InsertAt(i, c.Value)
		}
		return parent.Set(last, c.Value)
	case domain.OpReplace:
		return d.SetIn(c.Path, c.Value)
	case domain.OpRemove:
		return d.DeleteIn(c.Path)
	}
	return fmt.Errorf("%w: unknown op %q", domain.ErrInvalidPath, c.Op)
}
