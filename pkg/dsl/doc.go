/*
Package dsl defines reducers declaratively.

An action is a list of operations (set, delete, inc, append, insert, remove,
merge) addressed by dotted paths. Values may refer to the action payload with
"$payload" or "$payload.field", and paths may embed "{payload.field}" tokens.
Definitions come from YAML documents, from any ports.ActionSource, or from the
fluent Builder, and compile to store.Reducers.

Example usage:

	b := dsl.New()

	b.Action("add_todo").
		Describe("Append a todo").
		Append("todos", map[string]any{"title": "$payload", "done": false})

	b.Action("toggle").
		Set("todos.{payload}.done", true)

	reducers, err := b.Reducers()
	if err != nil {
		return err
	}
	s := store.New(initial, reducers)
*/
package dsl
