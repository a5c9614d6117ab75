// Package pressure monitors host heap usage and classifies it into ordered
// tiers (warn < aggressive < emergency).
//
// The monitor is capability-gated: hosts without heap telemetry get no-op
// behavior and the orchestrator falls back to count-based heuristics alone.
// Reclamation is a best-effort nudge, never a guarantee; the host collector
// stays opaque.
package pressure
