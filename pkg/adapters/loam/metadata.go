package loam

// ActionMetadata is the frontmatter of an action document.
// It uses "mapstructure" tags to match standard Frontmatter/YAML keys.
//
//	---
//	name: add_todo
//	description: Append a todo
//	ops:
//	  - op: append
//	    path: todos
//	    value: $payload
//	---
//	Free-form notes. Used as the description when none is given.
type ActionMetadata struct {
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description" mapstructure:"description"`
	Ops         []any  `json:"ops" mapstructure:"ops"`
}
