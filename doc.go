/*
Package sculpt produces immutable state trees through copy-on-write drafts.

A recipe edits a draft as if the state were mutable. Sculpt records the
edits and builds the next state, sharing every untouched subtree with the
previous one. Unchanged state comes back as the very same reference, so
consumers can detect change with a pointer comparison.

# Key Features

  - Structural Sharing: only the path from the root to an edit is rebuilt.
  - Lazy Drafts: containers are wrapped only when a recipe visits them.
  - Safe by Construction: state values expose no mutators, and drafts are
    revoked when the call returns.
  - Pluggable Persistence: the session layer saves snapshots to memory,
    files, Redis or SQLite.

# Usage

	package main

	import (
		"fmt"
		"log"

		"github.com/aretw0/sculpt"
		"github.com/aretw0/sculpt/pkg/draft"
	)

	func main() {
		state, err := sculpt.ProduceNative(map[string]any{"count": 1}, func(d *draft.Draft) error {
			n, _ := d.Leaf("count")
			i, _ := n.AsInt()
			return d.Set("count", i+1)
		})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(state) // {"count":2}
	}

For observability, pass WithLogger and WithLifecycleHooks to New and use
Engine.Produce. The pkg/store and pkg/session packages build reducer-driven
containers on top of the engine.
*/
package sculpt
