package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/aretw0/sculpt/pkg/ports"
)

// Loader adapts a Loam repository to ports.ActionSource.
// Each document in the repository defines one action.
type Loader struct {
	Repo *loam.TypedRepository[ActionMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[ActionMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// Open initializes the repository at dir read-only and wraps it.
func Open(dir string) (*Loader, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve action directory: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithVersioning(false),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open action repository: %w", err)
	}
	return New(loam.NewTypedRepository[ActionMetadata](repo)), nil
}

// GetAction looks the document up by ID first and falls back to matching
// the declared name, since the two may differ.
func (l *Loader) GetAction(ctx context.Context, name string) (ports.ActionDefinition, error) {
	if doc, err := l.Repo.Get(ctx, name); err == nil {
		def, err := toDefinition(doc.ID, doc.Data, doc.Content)
		if err != nil {
			return ports.ActionDefinition{}, err
		}
		if def.Name == name {
			return def, nil
		}
	}

	defs, err := l.ListActions(ctx)
	if err != nil {
		return ports.ActionDefinition{}, err
	}
	for _, def := range defs {
		if def.Name == name {
			return def, nil
		}
	}
	return ports.ActionDefinition{}, &domain.UnknownActionError{Action: name}
}

// ListActions returns every definition in the repository, sorted by name.
func (l *Loader) ListActions(ctx context.Context) ([]ports.ActionDefinition, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	defs := make([]ports.ActionDefinition, 0, len(docs))
	for _, doc := range docs {
		def, err := toDefinition(doc.ID, doc.Data, doc.Content)
		if err != nil {
			return nil, err
		}

		// Collision Detection
		if existingPath, ok := seen[def.Name]; ok {
			return nil, fmt.Errorf("collision detected: action '%s' is defined in both '%s' and '%s'", def.Name, existingPath, doc.ID)
		}
		seen[def.Name] = doc.ID
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, nil
}

func toDefinition(docID string, meta ActionMetadata, content string) (ports.ActionDefinition, error) {
	name := meta.Name
	if name == "" {
		name = trimExtension(docID)
	}

	def := ports.ActionDefinition{
		Name:        name,
		Description: meta.Description,
		Ops:         make([]map[string]any, 0, len(meta.Ops)),
	}
	if def.Description == "" {
		def.Description = strings.TrimSpace(content)
	}

	for i, raw := range meta.Ops {
		op, ok := normalize(raw).(map[string]any)
		if !ok {
			return ports.ActionDefinition{}, fmt.Errorf("action '%s' op %d: expected a mapping, got %T", name, i, raw)
		}
		def.Ops = append(def.Ops, op)
	}
	return def, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// normalize converts map[interface{}]interface{} (as some YAML decoders
// produce) into map[string]any, recursively.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, sub := range val {
			out[k] = normalize(sub)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]any, len(val))
		for k, sub := range val {
			out[fmt.Sprint(k)] = normalize(sub)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, sub := range val {
			out[i] = normalize(sub)
		}
		return out
	}
	return v
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	// Watch for all relevant files (recursive) using doublestar pattern supported by Loam/Doublestar
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- trimExtension(evt.ID):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

var (
	_ ports.ActionSource = (*Loader)(nil)
	_ ports.Watchable    = (*Loader)(nil)
)
