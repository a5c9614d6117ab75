// Package cleanup implements the tiered reclamation orchestrator.
//
// Three policy tiers (conservative, moderate, aggressive) bound each
// resource kind by age and count. Passes are dispatched from independent
// schedules: a fixed periodic pass, per-tier schedules, edge-triggered
// conditions evaluated every sampling tick, and a final emergency pass at
// shutdown. A single guard serializes passes; a trigger firing while a pass
// runs is dropped, not queued, so dispatch is at-most-once per interval.
//
// Inside a pass, kinds are visited in fixed priority order. Resources over
// the age limit go first, then the count limit, oldest first as the
// tie-break, all within a global per-pass reclamation ceiling. External
// collaborators are invoked behind per-collaborator circuit breakers and
// their failures never abort the pass.
package cleanup
