// Package monitoring defines the Prometheus collectors for the runtime:
// registry gauges, cleanup pass counters and durations, pool reuse counters,
// pressure gauges, and leak/alert counters.
package monitoring
