/*
Package observability exposes action execution through Prometheus metrics.

Metrics are fed by lifecycle hooks, so they attach to a runner like any other
observer. Aggregate fans one set of hooks out to several observers.
Cancellations have their own counter and never count as failures.
*/
package observability
