package domain

// Transition records one committed step of a slot: the action that was
// applied, the snapshots on either side and the changes between them.
// Before and After share every untouched subtree.
type Transition struct {
	SlotID  string   `json:"slot_id"`
	Action  string   `json:"action"`
	Before  Value    `json:"-"`
	After   Value    `json:"state"`
	Changes []Change `json:"changes"`
}

// Changed reports whether the action produced a new snapshot.
func (t *Transition) Changed() bool {
	return t != nil && !Same(t.Before, t.After)
}
