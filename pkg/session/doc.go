/*
Package session manages durable state slots.

A slot is a named snapshot kept in a ports.SnapshotStore and advanced only by
dispatching actions to registered reducers. The Manager serializes work per
slot with reference-counted local locks and, when configured, a
ports.DistributedLocker so several replicas can share one store.
Every committed change is reported to observers as a domain.Transition.
*/
package session
