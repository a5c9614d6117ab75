package cleanup

import (
	"time"

	"github.com/wardenhq/warden/internal/resource"
)

// Tier is a cleanup aggressiveness level.
type Tier int

const (
	TierConservative Tier = iota
	TierModerate
	TierAggressive
)

// String returns the string representation of the tier.
func (t Tier) String() string {
	switch t {
	case TierConservative:
		return "conservative"
	case TierModerate:
		return "moderate"
	case TierAggressive:
		return "aggressive"
	default:
		return "unknown"
	}
}

// TierFromString parses a tier name. Returns false for unknown names.
func TierFromString(s string) (Tier, bool) {
	switch s {
	case "conservative":
		return TierConservative, true
	case "moderate":
		return TierModerate, true
	case "aggressive":
		return TierAggressive, true
	default:
		return 0, false
	}
}

// KindLimits bounds one resource kind under a policy.
type KindLimits struct {
	MaxAge   time.Duration
	MaxCount int
}

// Policy is the reclamation behavior of one tier.
type Policy struct {
	Tier   Tier
	Limits map[resource.Kind]KindLimits
	// MemoryRatioThreshold gates forced reclamation: with ForceReclaim set,
	// a pass also nudges the host collector when the pressure ratio is at or
	// above this value.
	MemoryRatioThreshold float64
	ForceReclaim         bool
}

// DefaultPolicies returns the three tiers with strictly increasing
// aggressiveness: shorter ages, lower counts, lower memory threshold.
func DefaultPolicies() map[Tier]Policy {
	return map[Tier]Policy{
		TierConservative: {
			Tier: TierConservative,
			Limits: map[resource.Kind]KindLimits{
				resource.KindPendingOperation: {MaxAge: 4 * time.Minute, MaxCount: 200},
				resource.KindTimer:            {MaxAge: 20 * time.Minute, MaxCount: 50},
				resource.KindSubscription:     {MaxAge: time.Hour, MaxCount: 100},
				resource.KindObserver:         {MaxAge: time.Hour, MaxCount: 50},
				resource.KindElementRef:       {MaxAge: 30 * time.Minute, MaxCount: 1000},
				resource.KindBuffer:           {MaxAge: 10 * time.Minute, MaxCount: 50},
			},
			MemoryRatioThreshold: 0.90,
			ForceReclaim:         false,
		},
		TierModerate: {
			Tier: TierModerate,
			Limits: map[resource.Kind]KindLimits{
				resource.KindPendingOperation: {MaxAge: 2 * time.Minute, MaxCount: 100},
				resource.KindTimer:            {MaxAge: 10 * time.Minute, MaxCount: 30},
				resource.KindSubscription:     {MaxAge: 30 * time.Minute, MaxCount: 60},
				resource.KindObserver:         {MaxAge: 30 * time.Minute, MaxCount: 30},
				resource.KindElementRef:       {MaxAge: 15 * time.Minute, MaxCount: 500},
				resource.KindBuffer:           {MaxAge: 5 * time.Minute, MaxCount: 25},
			},
			MemoryRatioThreshold: 0.80,
			ForceReclaim:         false,
		},
		TierAggressive: {
			Tier: TierAggressive,
			Limits: map[resource.Kind]KindLimits{
				resource.KindPendingOperation: {MaxAge: 30 * time.Second, MaxCount: 30},
				resource.KindTimer:            {MaxAge: 2 * time.Minute, MaxCount: 10},
				resource.KindSubscription:     {MaxAge: 10 * time.Minute, MaxCount: 20},
				resource.KindObserver:         {MaxAge: 10 * time.Minute, MaxCount: 10},
				resource.KindElementRef:       {MaxAge: 5 * time.Minute, MaxCount: 100},
				resource.KindBuffer:           {MaxAge: time.Minute, MaxCount: 10},
			},
			MemoryRatioThreshold: 0.70,
			ForceReclaim:         true,
		},
	}
}
