/*
Package ports defines the driven ports (interfaces) for the Sculpt engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to work with various storage backends and definition sources.

# Key Interfaces

  - SnapshotStore: Responsible for persisting and loading slot snapshots.
  - DistributedLocker: Provides distributed locking for concurrent slot access.
  - ActionSource: Supplies declarative action definitions (e.g., from Loam).
  - SlotService: The application surface consumed by HTTP and MCP adapters.
*/
package ports
