package draft

import (
	"fmt"

	"github.com/aretw0/sculpt/pkg/domain"
)

func (d *Draft) getSeg(seg string) (domain.Value, bool) {
	switch d.Kind() {
	case domain.KindRecord:
		return d.Get(seg)
	case domain.KindSequence:
		i, err := domain.Index(seg)
		if err != nil {
			return nil, false
		}
		return d.At(i)
	}
	return nil, false
}

func (d *Draft) childSeg(seg string) (*Draft, error) {
	n, err := d.node()
	if err != nil {
		return nil, err
	}
	switch n.base.Kind() {
	case domain.KindRecord:
		return d.Child(seg)
	case domain.KindSequence:
		i, err := domain.Index(seg)
		if err != nil {
			return nil, err
		}
		return d.ChildAt(i)
	}
	return nil, fmt.Errorf("%w: cannot descend into %q", domain.ErrNotContainer, seg)
}

// GetIn returns the current value at a dotted path ("todos.0.title").
func (d *Draft) GetIn(path string) (domain.Value, bool) {
	p, err := domain.ParsePath(path)
	if err != nil {
		return nil, false
	}
	if p.IsRoot() {
		v, err := d.Current()
		return v, err == nil
	}
	v, ok := d.getSeg(p[0])
	if !ok {
		return nil, false
	}
	return domain.Lookup(v, p[1:])
}

// ChildIn walks a dotted path, materializing drafts along the way.
// The empty path returns d itself.
func (d *Draft) ChildIn(path string) (*Draft, error) {
	p, err := domain.ParsePath(path)
	if err != nil {
		return nil, err
	}
	return d.childPath(p)
}

func (d *Draft) childPath(p domain.Path) (*Draft, error) {
	cur := d
	for i, seg := range p {
		next, err := cur.childSeg(seg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p[:i+1], err)
		}
		cur = next
	}
	if _, err := cur.node(); err != nil {
		return nil, err
	}
	return cur, nil
}

// SetIn stores v at a dotted path. Intermediate containers must exist.
// On a sequence, the index equal to its length appends.
func (d *Draft) SetIn(path string, v any) error {
	parent, last, err := d.parentOf(path)
	if err != nil {
		return err
	}
	if parent.Kind() == domain.KindSequence {
		i, err := domain.Index(last)
		if err != nil {
			return err
		}
		return parent.SetAt(i, v)
	}
	return parent.Set(last, v)
}

// DeleteIn removes the record key or sequence item at a dotted path.
func (d *Draft) DeleteIn(path string) error {
	parent, last, err := d.parentOf(path)
	if err != nil {
		return err
	}
	if parent.Kind() == domain.KindSequence {
		i, err := domain.Index(last)
		if err != nil {
			return err
		}
		return parent.RemoveAt(i)
	}
	return parent.Delete(last)
}

func (d *Draft) parentOf(path string) (*Draft, string, error) {
	p, err := domain.ParsePath(path)
	if err != nil {
		return nil, "", err
	}
	if p.IsRoot() {
		return nil, "", fmt.Errorf("%w: the root cannot be assigned, return a replacement instead", domain.ErrInvalidPath)
	}
	dir, last := p.Parent()
	parent, err := d.childPath(dir)
	if err != nil {
		return nil, "", err
	}
	return parent, last, nil
}
