package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/aretw0/sculpt/pkg/draft"
	"github.com/aretw0/sculpt/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

type piiMiddleware struct {
	next     ports.SnapshotStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks values of keys matching the patterns.
// The snapshot held by the caller is never touched: masking produces a new
// tree that shares every subtree without a matching key.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, slotID string, state domain.Value) error {
	masked, err := Redact(state, m.patterns)
	if err != nil {
		return fmt.Errorf("failed to redact snapshot: %w", err)
	}
	return m.next.Save(ctx, slotID, masked)
}

func (m *piiMiddleware) Load(ctx context.Context, slotID string) (domain.Value, error) {
	return m.next.Load(ctx, slotID)
}

func (m *piiMiddleware) Delete(ctx context.Context, slotID string) error {
	return m.next.Delete(ctx, slotID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// Redact returns state with the value of every record key matching one of
// patterns replaced by Mask, at any depth.
func Redact(state domain.Value, patterns []*regexp.Regexp) (domain.Value, error) {
	if len(patterns) == 0 {
		return state, nil
	}
	return draft.Produce(state, func(d *draft.Draft) error {
		return maskDraft(d, patterns)
	})
}

func maskDraft(d *draft.Draft, patterns []*regexp.Regexp) error {
	switch d.Kind() {
	case domain.KindRecord:
		for _, k := range d.Keys() {
			if matchAny(patterns, k) {
				if err := d.Set(k, Mask); err != nil {
					return err
				}
				continue
			}
			if v, _ := d.Get(k); !domain.IsContainer(v) {
				continue
			}
			child, err := d.Child(k)
			if err != nil {
				return err
			}
			if err := maskDraft(child, patterns); err != nil {
				return err
			}
		}
	case domain.KindSequence:
		for i := 0; i < d.Len(); i++ {
			if v, _ := d.At(i); !domain.IsContainer(v) {
				continue
			}
			child, err := d.ChildAt(i)
			if err != nil {
				return err
			}
			if err := maskDraft(child, patterns); err != nil {
				return err
			}
		}
	}
	return nil
}

func matchAny(patterns []*regexp.Regexp, key string) bool {
	for _, p := range patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
