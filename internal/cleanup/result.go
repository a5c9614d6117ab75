package cleanup

import (
	"time"

	"github.com/wardenhq/warden/internal/resource"
)

const (
	historyCap  = 100
	historyKeep = 50
)

// Trigger identifies which schedule or condition dispatched a pass.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerPeriodic  Trigger = "periodic"
	TriggerScheduled Trigger = "scheduled"
	TriggerEdge      Trigger = "edge"
	TriggerEmergency Trigger = "emergency"
)

// KindResult records reclamation of one kind within a pass.
type KindResult struct {
	Kind      resource.Kind `json:"-"`
	KindName  string        `json:"kind"`
	Before    int           `json:"before"`
	After     int           `json:"after"`
	Reclaimed int           `json:"reclaimed"`
	Error     string        `json:"error,omitempty"`
}

// CollaboratorResult records one external cleaner invocation.
type CollaboratorResult struct {
	Name    string `json:"name"`
	Cleaned int    `json:"cleaned"`
	Error   string `json:"error,omitempty"`
}

// Result is the record of one completed pass. Success means no per-kind
// errors; collaborator failures are recorded but do not flip it.
type Result struct {
	Tier          string               `json:"tier"`
	Trigger       Trigger              `json:"trigger"`
	Condition     string               `json:"condition,omitempty"`
	StartedAt     time.Time            `json:"started_at"`
	Duration      time.Duration        `json:"duration"`
	Kinds         []KindResult         `json:"kinds"`
	Collaborators []CollaboratorResult `json:"collaborators,omitempty"`
	Reclaimed     int                  `json:"reclaimed"`
	ForcedReclaim bool                 `json:"forced_reclaim"`
	Success       bool                 `json:"success"`
}

// history is a bounded pass log: capped at historyCap, trimmed to the most
// recent historyKeep on overflow. Caller synchronizes.
type history struct {
	results []Result
}

func (h *history) append(r Result) {
	h.results = append(h.results, r)
	if len(h.results) > historyCap {
		kept := make([]Result, historyKeep)
		copy(kept, h.results[len(h.results)-historyKeep:])
		h.results = kept
	}
}

func (h *history) snapshot() []Result {
	out := make([]Result, len(h.results))
	copy(out, h.results)
	return out
}
