/*
Package observability provides tools for monitoring the Sculpt engine.

Metrics exposes Prometheus collectors and the lifecycle hooks that feed
them. Hooks from several sources can be chained with Combine.
*/
package observability
