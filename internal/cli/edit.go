package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/sculpt"
	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/aretw0/sculpt/pkg/draft"
)

// Edit is one change requested on the command line.
type Edit struct {
	Path   string
	Value  domain.Value
	Delete bool
}

// ParseAssignment parses "path=value". The value is read as YAML, so
// numbers, booleans, null, [lists] and {maps} keep their type; anything else
// is a string.
func ParseAssignment(s string) (Edit, error) {
	path, raw, ok := strings.Cut(s, "=")
	if !ok {
		return Edit{}, fmt.Errorf("expected path=value, got %q", s)
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Edit{}, fmt.Errorf("%w: empty path in %q", domain.ErrInvalidPath, s)
	}
	if strings.TrimSpace(raw) == "" {
		return Edit{Path: path, Value: domain.String("")}, nil
	}
	v, err := domain.ParseYAML([]byte(raw))
	if err != nil {
		// Not valid YAML: take it literally.
		v = domain.String(raw)
	}
	return Edit{Path: path, Value: v}, nil
}

// ApplyEdits runs the edits in order through a single produce call.
func ApplyEdits(ctx context.Context, eng *sculpt.Engine, base domain.Value, edits []Edit) (domain.Value, error) {
	return eng.Produce(ctx, base, func(d *draft.Draft) error {
		for _, e := range edits {
			var err error
			if e.Delete {
				err = d.DeleteIn(e.Path)
			} else {
				err = d.SetIn(e.Path, e.Value)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", e.Path, err)
			}
		}
		return nil
	})
}

// ReadChanges loads a JSON change list, as printed by "sculpt diff --json".
func ReadChanges(path string) ([]domain.Change, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var changes []domain.Change
	if err := json.Unmarshal(data, &changes); err != nil {
		return nil, fmt.Errorf("failed to decode changes in %s: %w", path, err)
	}
	for i, c := range changes {
		switch c.Op {
		case domain.OpAdd, domain.OpReplace, domain.OpRemove:
		default:
			return nil, fmt.Errorf("%s: change %d: unknown op %q", path, i, c.Op)
		}
		if _, err := domain.ParsePath(c.Path); err != nil {
			return nil, fmt.Errorf("%s: change %d: %w", path, i, err)
		}
		if c.Op != domain.OpRemove && c.Value == nil {
			changes[i].Value = domain.Null()
		}
	}
	return changes, nil
}

// ReadValue loads a state tree from a JSON or YAML file; "-" reads stdin.
func ReadValue(path string, stdin io.Reader) (domain.Value, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var v domain.Value
	if strings.EqualFold(filepath.Ext(path), ".json") {
		v, err = domain.ParseJSON(data)
	} else {
		v, err = domain.ParseYAML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return v, nil
}

// WriteValue encodes v as "json" (indented) or "yaml".
func WriteValue(w io.Writer, v domain.Value, format string) error {
	switch format {
	case "yaml", "yml":
		data, err := domain.EncodeYAML(v)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return fmt.Errorf("unknown output format %q", format)
}
