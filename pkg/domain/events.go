package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventProduce  EventType = "produce"
	EventDispatch EventType = "dispatch"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// ProduceEvent describes one finished Produce call.
type ProduceEvent struct {
	EventBase
	Duration time.Duration `json:"duration"`
	Drafts   int           `json:"drafts"`   // Draft nodes materialized during the call
	Changed  bool          `json:"changed"`  // Result differs from base by reference
	Replaced bool          `json:"replaced"` // Recipe returned a replacement value
	Err      error         `json:"-"`
}

// DispatchEvent describes one action applied to a slot.
type DispatchEvent struct {
	EventBase
	SlotID  string `json:"slot_id,omitempty"`
	Action  string `json:"action"`
	Changed bool   `json:"changed"`
	Err     error  `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnProduce  func(context.Context, *ProduceEvent)
	OnDispatch func(context.Context, *DispatchEvent)
}

// Merge returns hooks that invoke h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnProduce: func(ctx context.Context, e *ProduceEvent) {
			if h.OnProduce != nil {
				h.OnProduce(ctx, e)
			}
			if other.OnProduce != nil {
				other.OnProduce(ctx, e)
			}
		},
		OnDispatch: func(ctx context.Context, e *DispatchEvent) {
			if h.OnDispatch != nil {
				h.OnDispatch(ctx, e)
			}
			if other.OnDispatch != nil {
				other.OnDispatch(ctx, e)
			}
		},
	}
}
