package cleanup

import (
	"time"

	"go.uber.org/zap"
)

// Edge condition names, reported as the pass condition.
const (
	CondMemoryPressure   = "memory-pressure"
	CondResourceOverload = "resource-overload"
	CondStructureGrowth  = "structure-growth"
	CondHidden           = "visibility-hidden"
	CondInactivity       = "inactivity"
)

// edge is an edge-triggered condition: it stores its previous boolean value
// and dispatches only on a false→true transition, never on every tick it
// stays true.
type edge struct {
	name string
	tier Tier
	eval func() bool
	prev bool
}

func (o *Orchestrator) defaultEdges() []*edge {
	return []*edge{
		{
			name: CondMemoryPressure,
			tier: TierAggressive,
			eval: func() bool {
				return o.pressure != nil && o.pressure.Ratio() >= o.cfg.PressureRatio
			},
		},
		{
			name: CondResourceOverload,
			tier: TierModerate,
			eval: func() bool {
				return o.cfg.ResourceCeiling > 0 && o.registry.Total() > o.cfg.ResourceCeiling
			},
		},
		{
			name: CondStructureGrowth,
			tier: TierModerate,
			eval: func() bool {
				o.mu.Lock()
				sizer := o.structureSize
				o.mu.Unlock()
				return sizer != nil && o.cfg.StructureCeiling > 0 && sizer() > o.cfg.StructureCeiling
			},
		},
		{
			name: CondHidden,
			tier: TierConservative,
			eval: func() bool {
				o.mu.Lock()
				defer o.mu.Unlock()
				return !o.visible
			},
		},
		{
			name: CondInactivity,
			tier: TierConservative,
			eval: func() bool {
				o.mu.Lock()
				defer o.mu.Unlock()
				return o.cfg.InactivityWindow > 0 &&
					time.Since(o.lastActivity) > o.cfg.InactivityWindow
			},
		},
	}
}

// SetStructureSizer installs the host structure-size gauge (for example, a
// DOM node counter) sampled by the structure-growth edge.
func (o *Orchestrator) SetStructureSizer(fn func() int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.structureSize = fn
}

// SetVisible records host visibility. A transition to hidden arms the
// visibility edge.
func (o *Orchestrator) SetVisible(visible bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.visible = visible
}

// MarkActivity resets the inactivity clock.
func (o *Orchestrator) MarkActivity() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastActivity = time.Now()
}

// EvaluateEdges checks every edge condition once. Intended to run on the
// sampling schedule. Each false→true transition dispatches one pass at the
// edge's tier; a condition holding true across ticks dispatches nothing
// further until it clears and re-fires.
func (o *Orchestrator) EvaluateEdges() {
	o.edgeMu.Lock()
	defer o.edgeMu.Unlock()

	for _, e := range o.edges {
		cur := e.eval()
		fired := cur && !e.prev
		e.prev = cur
		if !fired {
			continue
		}
		o.logger.Info("edge condition fired",
			zap.String("condition", e.name), zap.String("tier", e.tier.String()))
		o.Run(e.tier, TriggerEdge, e.name)
	}
}
