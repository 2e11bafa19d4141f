/*
Package draft implements copy-on-write updates of immutable state trees.

A recipe receives a *Draft of the base value and edits it as if it were
mutable. When the recipe returns, the edits are folded into a new tree that
shares every untouched subtree with the base:

	next, err := draft.Produce(state, func(d *draft.Draft) error {
		todos, err := d.Child("todos")
		if err != nil {
			return err
		}
		return todos.Append(map[string]any{"title": "ship it", "done": false})
	})

Drafts are created lazily, one per container actually visited, and live in
an arena owned by the call. Once Produce returns the arena is revoked and
every draft from it reports domain.ErrStaleDraft.
*/
package draft
