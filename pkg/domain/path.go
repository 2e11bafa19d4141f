package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Path addresses a node inside a state tree. Each segment is a record key or,
// when the container is a sequence, a decimal index.
type Path []string

// ParsePath parses dotted notation ("todos.0.title"). Bracketed segments
// are accepted as well: indices ("todos[0].title") and quoted keys
// (`users["a.b"].name`), which may hold any character, including none.
// The empty string is the root.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Path{}, nil
	}

	p := Path{}
	afterDot := true
	for i := 0; i < len(s); {
		switch s[i] {
		case '.':
			if afterDot {
				return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, s)
			}
			afterDot = true
			i++
		case '[':
			seg, next, err := parseBracket(s, i)
			if err != nil {
				return nil, err
			}
			p = append(p, seg)
			afterDot = false
			i = next
		default:
			if !afterDot {
				return nil, fmt.Errorf("%w: missing separator at offset %d in %q", ErrInvalidPath, i, s)
			}
			j := i
			for j < len(s) && s[j] != '.' && s[j] != '[' {
				if s[j] == ']' || s[j] == '"' {
					return nil, fmt.Errorf("%w: unexpected %q in %q", ErrInvalidPath, s[j], s)
				}
				j++
			}
			p = append(p, s[i:j])
			afterDot = false
			i = j
		}
	}
	if afterDot {
		return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, s)
	}
	return p, nil
}

// parseBracket reads the segment of the bracket opening at s[i] and returns
// it with the offset just past the closing bracket.
func parseBracket(s string, i int) (string, int, error) {
	if i+1 < len(s) && s[i+1] == '"' {
		j := i + 2
		for j < len(s) && s[j] != '"' {
			if s[j] == '\\' {
				j++
			}
			j++
		}
		if j+1 >= len(s) || s[j+1] != ']' {
			return "", 0, fmt.Errorf("%w: unterminated quoted segment in %q", ErrInvalidPath, s)
		}
		seg, err := strconv.Unquote(s[i+1 : j+1])
		if err != nil {
			return "", 0, fmt.Errorf("%w: bad quoted segment in %q: %v", ErrInvalidPath, s, err)
		}
		return seg, j + 2, nil
	}

	end := strings.IndexByte(s[i:], ']')
	if end < 0 {
		return "", 0, fmt.Errorf("%w: unterminated bracket in %q", ErrInvalidPath, s)
	}
	seg := s[i+1 : i+end]
	if seg == "" || strings.ContainsAny(seg, `[".`) {
		return "", 0, fmt.Errorf("%w: bad bracket segment %q in %q", ErrInvalidPath, seg, s)
	}
	return seg, i + end + 1, nil
}

// MustParsePath is like ParsePath but panics on error.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String renders p so that ParsePath gives p back. Plain segments are
// joined with dots; segments that are empty, carry separators, quotes or
// backslashes, or start or end with spaces are written as ["quoted"].
func (p Path) String() string {
	var sb strings.Builder
	for i, seg := range p {
		if needsQuoting(seg) {
			sb.WriteByte('[')
			sb.WriteString(strconv.Quote(seg))
			sb.WriteByte(']')
			continue
		}
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(seg)
	}
	return sb.String()
}

func needsQuoting(seg string) bool {
	return seg == "" ||
		strings.ContainsAny(seg, `.[]"\`) ||
		strings.TrimSpace(seg) != seg
}

// HasPrefix reports whether prefix addresses p itself or one of its ancestors.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i, seg := range prefix {
		if p[i] != seg {
			return false
		}
	}
	return true
}

// IsRoot reports whether the path addresses the root.
func (p Path) IsRoot() bool { return len(p) == 0 }

// Append returns a new path with seg appended. p is not modified.
func (p Path) Append(seg string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}

// Parent splits the path into its parent and last segment.
func (p Path) Parent() (Path, string) {
	if len(p) == 0 {
		return nil, ""
	}
	return p[:len(p)-1], p[len(p)-1]
}

// Index parses seg as a sequence index.
func Index(seg string) (int, error) {
	i, err := strconv.Atoi(seg)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w: %q is not a sequence index", ErrInvalidPath, seg)
	}
	return i, nil
}

// Lookup walks v along p.
func Lookup(v Value, p Path) (Value, bool) {
	cur := v
	for _, seg := range p {
		switch c := cur.(type) {
		case *Record:
			next, ok := c.Get(seg)
			if !ok {
				return nil, false
			}
			cur = next
		case *Sequence:
			i, err := Index(seg)
			if err != nil {
				return nil, false
			}
			next, ok := c.At(i)
			if !ok {
				return nil, false
			}
			cur = next
		default:
			return nil, false
		}
	}
	return cur, true
}
